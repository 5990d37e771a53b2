package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/llm"
	"github.com/grand-thief-cash/voltify/internal/model"
)

const (
	inferSystemPrompt = "You are a personal productivity assistant. " +
		"Classify the task into exactly one category from this list: Work, Study, Personal, Other. " +
		"Estimate how long the task takes in whole minutes as a positive integer. " +
		`Reply with a single JSON object and nothing else, in the form {"category": "Work", "estimated_time": 30}.`
	inferUserPromptFmt = "Task: %s"

	summarySystemPrompt = "You are a helpful assistant who creates smart weekly summaries for open tasks."

	describePromptFmt = "Suggest a short description for a task titled: '%s'"
)

// Enricher 任务生命周期使用的推断能力
type Enricher interface {
	Infer(ctx context.Context, text string) (*model.EnrichmentResult, error)
	SuggestDescription(ctx context.Context, title string) (string, error)
}

// Summarizer 周报使用
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// EnrichmentService 对 LLM 的调用都不重试, 失败统一转成 EnrichmentError
type EnrichmentService struct {
	*core.BaseComponent
	LLM     llm.ChatCompleter `infra:"dep:llm_client"`
	Metrics *Metrics          `infra:"dep:biz_metrics?"`

	cfg bizConfig.LLMConfig
}

func NewEnrichmentService(cfg bizConfig.LLMConfig) *EnrichmentService {
	return &EnrichmentService{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_ENRICH),
		cfg:           cfg,
	}
}

func (s *EnrichmentService) complete(ctx context.Context, kind string, req llm.ChatRequest) (string, error) {
	start := time.Now()
	out, err := s.LLM.Complete(ctx, req)
	s.Metrics.Enrichment(kind, time.Since(start), err)
	if err != nil {
		logging.Warn(ctx, "llm call failed", zap.String("kind", kind), zap.Error(err))
		return "", &EnrichmentError{Op: kind, Err: err}
	}
	return out, nil
}

// Infer 推断分类与预估时长
func (s *EnrichmentService) Infer(ctx context.Context, text string) (*model.EnrichmentResult, error) {
	out, err := s.complete(ctx, "infer", llm.ChatRequest{
		Model:       s.cfg.CategoryModel,
		Temperature: s.cfg.CategoryTemperature,
		Messages: []llm.Message{
			{Role: "system", Content: inferSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(inferUserPromptFmt, text)},
		},
	})
	if err != nil {
		return nil, err
	}
	res, err := ParseEnrichment(out)
	if err != nil {
		logging.Warn(ctx, "enrichment response rejected", zap.String("raw", truncate(out, 256)), zap.Error(err))
		return nil, &EnrichmentError{Op: "infer", Err: err}
	}
	return res, nil
}

func (s *EnrichmentService) SuggestDescription(ctx context.Context, title string) (string, error) {
	return s.complete(ctx, "describe", llm.ChatRequest{
		Model:       s.cfg.SummaryModel,
		Temperature: s.cfg.SummaryTemperature,
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(describePromptFmt, title)}},
	})
}

func (s *EnrichmentService) Summarize(ctx context.Context, prompt string) (string, error) {
	return s.complete(ctx, "summary", llm.ChatRequest{
		Model:       s.cfg.SummaryModel,
		Temperature: s.cfg.SummaryTemperature,
		Messages: []llm.Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
}

// ParseEnrichment 模型输出不可信: 必须是恰好含 category / estimated_time 两个字段的 JSON 对象.
// 允许外层包一层 ``` 代码块.
func ParseEnrichment(raw string) (*model.EnrichmentResult, error) {
	body := stripCodeFence(raw)
	if !gjson.Valid(body) {
		return nil, errors.New("response is not valid JSON")
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return nil, errors.New("response is not a JSON object")
	}
	var (
		keys     int
		category gjson.Result
		minutes  gjson.Result
		unknown  string
	)
	doc.ForEach(func(k, v gjson.Result) bool {
		keys++
		switch k.String() {
		case "category":
			category = v
		case "estimated_time":
			minutes = v
		default:
			unknown = k.String()
		}
		return true
	})
	if unknown != "" {
		return nil, fmt.Errorf("unexpected field %q", unknown)
	}
	if keys != 2 || !category.Exists() || !minutes.Exists() {
		return nil, errors.New("expected exactly category and estimated_time")
	}
	if category.Type != gjson.String {
		return nil, errors.New("category must be a string")
	}
	label, ok := consts.NormalizeCategory(category.String())
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category.String())
	}
	n, err := positiveInt(minutes)
	if err != nil {
		return nil, err
	}
	return &model.EnrichmentResult{Category: string(label), EstimatedMinutes: n}, nil
}

// positiveInt 接受整数数字或纯数字字符串
func positiveInt(v gjson.Result) (int, error) {
	var text string
	switch v.Type {
	case gjson.Number:
		text = v.Raw
	case gjson.String:
		text = strings.TrimSpace(v.String())
	default:
		return 0, errors.New("estimated_time must be an integer")
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("estimated_time %q is not an integer", text)
	}
	if n <= 0 {
		return 0, fmt.Errorf("estimated_time must be positive, got %d", n)
	}
	return n, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // 语言标记, 例如 json
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
