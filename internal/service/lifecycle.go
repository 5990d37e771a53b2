package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/dao"
	"github.com/grand-thief-cash/voltify/internal/model"
)

const maxCategoryLen = 32

var tracer = otel.Tracer("github.com/grand-thief-cash/voltify/internal/service")

// TaskLifecycleManager 任务的增删改与完成状态; 所有存储访问都带 owner
type TaskLifecycleManager struct {
	*core.BaseComponent
	TaskDao    dao.TaskDao     `infra:"dep:task_dao"`
	Enricher   Enricher        `infra:"dep:enrichment_service"`
	Dispatcher EventDispatcher `infra:"dep:notification_dispatcher"`
	Metrics    *Metrics        `infra:"dep:biz_metrics?"`

	now   func() time.Time
	newID func() string
}

func NewTaskLifecycleManager() *TaskLifecycleManager {
	return &TaskLifecycleManager{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_LIFECYCLE),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (m *TaskLifecycleManager) startSpan(ctx context.Context, op, owner string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "task."+op, trace.WithAttributes(attribute.String("task.owner", owner)))
}

// finish 记录 span 状态与指标, 原样返回 err
func (m *TaskLifecycleManager) finish(span trace.Span, op string, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	m.Metrics.TaskOp(op, err)
	return err
}

// validated 校验后的公共字段
type validated struct {
	title    string
	category string
	minutes  *int
}

func validateInput(in model.TaskInput) (*validated, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(title) < consts.MinTitleLen {
		return nil, &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at least %d characters", consts.MinTitleLen)}
	}
	category := strings.TrimSpace(in.Category)
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return nil, &ValidationError{Field: "category", Reason: fmt.Sprintf("must be at most %d characters", maxCategoryLen)}
	}
	minutes, err := ParseEstimatedMinutes(in.EstimatedMinutes)
	if err != nil {
		return nil, err
	}
	return &validated{title: title, category: category, minutes: minutes}, nil
}

// ParseEstimatedMinutes 空串视为缺失; 否则必须是正整数
func ParseEstimatedMinutes(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &ValidationError{Field: "estimated_minutes", Reason: "must be a whole number"}
	}
	if n <= 0 {
		return nil, &ValidationError{Field: "estimated_minutes", Reason: "must be a positive number"}
	}
	return &n, nil
}

// CreateTask 分类或预估时长任一缺失时调用一次 Infer, 两个字段都用推断结果覆盖.
// 推断失败时不落库, 直接返回 EnrichmentError.
func (m *TaskLifecycleManager) CreateTask(ctx context.Context, owner string, in model.TaskInput) (task *model.Task, err error) {
	ctx, span := m.startSpan(ctx, "create", owner)
	defer func() { err = m.finish(span, "create", err) }()

	v, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	category, minutes := v.category, v.minutes
	if category == "" || minutes == nil {
		source := in.Description
		if strings.TrimSpace(source) == "" {
			source = v.title
		}
		res, err := m.Enricher.Infer(ctx, source)
		if err != nil {
			if !IsEnrichment(err) {
				err = &EnrichmentError{Op: "infer", Err: err}
			}
			return nil, err
		}
		n := res.EstimatedMinutes
		category, minutes = res.Category, &n
	}

	task = &model.Task{
		ID:               m.newID(),
		Owner:            owner,
		Title:            v.title,
		Description:      in.Description,
		Completed:        false,
		Priority:         in.Priority,
		Category:         category,
		EstimatedMinutes: minutes,
		CreatedAt:        m.now().UTC(),
	}
	if err := m.TaskDao.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	logging.Info(ctx, "task created", zap.String("task_id", task.ID), zap.String("category", task.Category))
	m.Dispatcher.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: task.Title, Description: task.Description})
	return task, nil
}

// UpdateTask 全量更新, 不做推断; 分类/时长缺失时保持原值. 未完成 -> 完成 时发送完成通知.
func (m *TaskLifecycleManager) UpdateTask(ctx context.Context, owner, id string, in model.TaskInput) (task *model.Task, err error) {
	ctx, span := m.startSpan(ctx, "update", owner)
	defer func() { err = m.finish(span, "update", err) }()

	v, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	cur, err := m.find(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	patch := &model.TaskPatch{
		Title:            &v.title,
		Description:      &in.Description,
		Completed:        &in.Completed,
		Priority:         &in.Priority,
		EstimatedMinutes: v.minutes,
	}
	if v.category != "" {
		patch.Category = &v.category
	}
	res, err := m.TaskDao.UpdateOne(ctx, owner, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if !res.Matched {
		return nil, &NotFoundError{ID: id}
	}
	wasDone := cur.Completed
	patch.Apply(cur)
	if !wasDone && cur.Completed {
		m.Dispatcher.Dispatch(ctx, NotificationEvent{Kind: EventTaskCompleted, Title: cur.Title, Description: cur.Description})
	}
	return cur, nil
}

// SetCompletion 状态幂等, 但每次置为完成都会发送通知
func (m *TaskLifecycleManager) SetCompletion(ctx context.Context, owner, id string, completed bool) (task *model.Task, err error) {
	ctx, span := m.startSpan(ctx, "set_completion", owner)
	defer func() { err = m.finish(span, "set_completion", err) }()

	res, err := m.TaskDao.UpdateOne(ctx, owner, id, &model.TaskPatch{Completed: &completed})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if !res.Matched {
		return nil, &NotFoundError{ID: id}
	}
	task, err = m.find(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if completed {
		m.Dispatcher.Dispatch(ctx, NotificationEvent{Kind: EventTaskCompleted, Title: task.Title, Description: task.Description})
	}
	return task, nil
}

func (m *TaskLifecycleManager) DeleteTask(ctx context.Context, owner, id string) (err error) {
	ctx, span := m.startSpan(ctx, "delete", owner)
	defer func() { err = m.finish(span, "delete", err) }()

	removed, err := m.TaskDao.DeleteOne(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !removed {
		return &NotFoundError{ID: id}
	}
	logging.Info(ctx, "task deleted", zap.String("task_id", id))
	return nil
}

// ApplySuggestedDescription 描述不能为空; 任务不存在或描述未变化都按 NotFound 处理
func (m *TaskLifecycleManager) ApplySuggestedDescription(ctx context.Context, owner, id, description string) (task *model.Task, err error) {
	ctx, span := m.startSpan(ctx, "apply_description", owner)
	defer func() { err = m.finish(span, "apply_description", err) }()

	if strings.TrimSpace(description) == "" {
		return nil, &ValidationError{Field: "description", Reason: "is required"}
	}
	res, err := m.TaskDao.UpdateOne(ctx, owner, id, &model.TaskPatch{Description: &description})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if !res.Matched || !res.Modified {
		return nil, &NotFoundError{ID: id}
	}
	return m.find(ctx, owner, id)
}

// SuggestDescription 根据标题让模型生成描述, 不写库
func (m *TaskLifecycleManager) SuggestDescription(ctx context.Context, owner, id string) (suggestion string, err error) {
	ctx, span := m.startSpan(ctx, "suggest_description", owner)
	defer func() { err = m.finish(span, "suggest_description", err) }()

	task, err := m.find(ctx, owner, id)
	if err != nil {
		return "", err
	}
	return m.Enricher.SuggestDescription(ctx, task.Title)
}

func (m *TaskLifecycleManager) ListTasks(ctx context.Context, owner string, filter *model.TaskFilter) ([]*model.Task, error) {
	return m.TaskDao.Find(ctx, owner, filter)
}

func (m *TaskLifecycleManager) GetTask(ctx context.Context, owner, id string) (*model.Task, error) {
	return m.find(ctx, owner, id)
}

func (m *TaskLifecycleManager) find(ctx context.Context, owner, id string) (*model.Task, error) {
	t, err := m.TaskDao.FindOne(ctx, owner, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return t, nil
}
