package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/llm"
)

type stubCompleter struct {
	out  string
	err  error
	reqs []llm.ChatRequest
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.out, s.err
}

func newEnrichment(out string, err error) (*EnrichmentService, *stubCompleter) {
	c := &stubCompleter{out: out, err: err}
	s := NewEnrichmentService(bizConfig.DefaultBizConfig().LLM)
	s.LLM = c
	return s, c
}

func TestParseEnrichment(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		category string
		minutes  int
		wantErr  bool
	}{
		{"plain", `{"category": "Work", "estimated_time": 30}`, "Work", 30, false},
		{"case insensitive", `{"category": "study", "estimated_time": 45}`, "Study", 45, false},
		{"string minutes", `{"category": "Other", "estimated_time": "15"}`, "Other", 15, false},
		{"fenced", "```json\n{\"category\": \"Personal\", \"estimated_time\": 20}\n```", "Personal", 20, false},
		{"not json", `Category: Work, about 30 minutes`, "", 0, true},
		{"array", `[{"category":"Work","estimated_time":30}]`, "", 0, true},
		{"missing minutes", `{"category": "Work"}`, "", 0, true},
		{"missing category", `{"estimated_time": 30}`, "", 0, true},
		{"extra field", `{"category": "Work", "estimated_time": 30, "confidence": 0.9}`, "", 0, true},
		{"unknown category", `{"category": "Chores", "estimated_time": 30}`, "", 0, true},
		{"numeric category", `{"category": 1, "estimated_time": 30}`, "", 0, true},
		{"zero minutes", `{"category": "Work", "estimated_time": 0}`, "", 0, true},
		{"negative minutes", `{"category": "Work", "estimated_time": -10}`, "", 0, true},
		{"fractional minutes", `{"category": "Work", "estimated_time": 12.5}`, "", 0, true},
		{"text minutes", `{"category": "Work", "estimated_time": "half an hour"}`, "", 0, true},
		{"null minutes", `{"category": "Work", "estimated_time": null}`, "", 0, true},
		{"empty", ``, "", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ParseEnrichment(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Category != tc.category || res.EstimatedMinutes != tc.minutes {
				t.Fatalf("got %+v", res)
			}
		})
	}
}

func TestInferSendsFixedInstructions(t *testing.T) {
	s, c := newEnrichment(`{"category":"Work","estimated_time":30}`, nil)
	res, err := s.Infer(context.Background(), "prepare quarterly report")
	if err != nil || res.Category != "Work" || res.EstimatedMinutes != 30 {
		t.Fatalf("infer: %+v %v", res, err)
	}
	if len(c.reqs) != 1 {
		t.Fatalf("expected a single call, got %d", len(c.reqs))
	}
	req := c.reqs[0]
	if req.Model != "gpt-4" || req.Temperature != 0.5 {
		t.Fatalf("unexpected model settings %+v", req)
	}
	sys := req.Messages[0].Content
	for _, label := range []string{"Work", "Study", "Personal", "Other", "estimated_time", "minutes"} {
		if !strings.Contains(sys, label) {
			t.Fatalf("system prompt missing %q: %s", label, sys)
		}
	}
	if !strings.Contains(req.Messages[1].Content, "prepare quarterly report") {
		t.Fatalf("user prompt must carry the source text: %+v", req.Messages[1])
	}
}

func TestInferFailuresAreEnrichmentErrors(t *testing.T) {
	s, c := newEnrichment("", errors.New("connection refused"))
	if _, err := s.Infer(context.Background(), "x"); !IsEnrichment(err) {
		t.Fatalf("transport failure: expected EnrichmentError, got %v", err)
	}
	if len(c.reqs) != 1 {
		t.Fatalf("no retry expected, calls=%d", len(c.reqs))
	}

	s, _ = newEnrichment("I think this is Work and takes 30 minutes", nil)
	_, err := s.Infer(context.Background(), "x")
	var ee *EnrichmentError
	if !errors.As(err, &ee) || ee.Op != "infer" {
		t.Fatalf("parse failure: expected EnrichmentError, got %v", err)
	}
}

func TestSummarizeAndSuggest(t *testing.T) {
	s, c := newEnrichment("All good", nil)
	out, err := s.Summarize(context.Background(), "prompt")
	if err != nil || out != "All good" {
		t.Fatalf("summarize: %q %v", out, err)
	}
	req := c.reqs[0]
	if req.Model != "gpt-3.5-turbo" || req.Temperature != 0.7 ||
		req.Messages[0].Content != "You are a helpful assistant who creates smart weekly summaries for open tasks." {
		t.Fatalf("unexpected summary request %+v", req)
	}

	if _, err := s.SuggestDescription(context.Background(), "Plan trip"); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got := c.reqs[1].Messages[0].Content; got != "Suggest a short description for a task titled: 'Plan trip'" {
		t.Fatalf("unexpected suggestion prompt %q", got)
	}
}
