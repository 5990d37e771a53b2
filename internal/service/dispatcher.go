package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

type EventKind string

const (
	EventTaskCreated   EventKind = "task_created"
	EventTaskCompleted EventKind = "task_completed"
	EventDigest        EventKind = "digest"
)

// NotificationEvent 请求处理过程中产生的待发送通知
type NotificationEvent struct {
	Kind        EventKind
	Title       string
	Description string
	Summary     string

	span trace.SpanContext
}

// EventDispatcher 非阻塞投递, 返回 false 表示事件被丢弃
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev NotificationEvent) bool
}

// NotificationDispatcher 有界队列 + 固定 worker; 队列满时丢弃并告警, 发送失败只记日志
type NotificationDispatcher struct {
	*core.BaseComponent
	Notifier Notifier `infra:"dep:notification_service"`
	Metrics  *Metrics `infra:"dep:biz_metrics?"`

	cfg    bizConfig.DispatcherConfig
	mu     sync.RWMutex
	ch     chan NotificationEvent
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewNotificationDispatcher(cfg bizConfig.DispatcherConfig) *NotificationDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &NotificationDispatcher{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_DISPATCHER),
		cfg:           cfg,
	}
}

func (d *NotificationDispatcher) Start(ctx context.Context) error {
	if d.IsActive() {
		return nil
	}
	if err := d.BaseComponent.Start(ctx); err != nil {
		return err
	}
	// Start 的 ctx 在返回后即被取消, worker 使用独立 ctx
	loopCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Lock()
	d.ch = make(chan NotificationEvent, d.cfg.QueueSize)
	ch := d.ch
	d.mu.Unlock()
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(loopCtx, ch)
	}
	logging.Info(ctx, fmt.Sprintf("notification dispatcher started, workers: %d", d.cfg.Workers))
	return nil
}

// Stop 关闭队列后等待 worker 把剩余事件发完, 超过 ctx 期限则放弃
func (d *NotificationDispatcher) Stop(ctx context.Context) error {
	if !d.IsActive() {
		return nil
	}
	d.mu.Lock()
	if d.ch != nil {
		close(d.ch)
		d.ch = nil
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn(ctx, "notification dispatcher stop timed out, pending events dropped")
	}
	if d.cancel != nil {
		d.cancel()
	}
	return d.BaseComponent.Stop(ctx)
}

func (d *NotificationDispatcher) Dispatch(ctx context.Context, ev NotificationEvent) bool {
	ev.span = trace.SpanContextFromContext(ctx)
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ch == nil {
		logging.Warn(ctx, "notification dispatcher not running, event dropped", zap.String("kind", string(ev.Kind)))
		d.Metrics.Notification(string(ev.Kind), "dropped")
		return false
	}
	select {
	case d.ch <- ev:
		return true
	default:
		logging.Warn(ctx, "notification queue full, event dropped", zap.String("kind", string(ev.Kind)))
		d.Metrics.Notification(string(ev.Kind), "dropped")
		return false
	}
}

func (d *NotificationDispatcher) worker(ctx context.Context, ch <-chan NotificationEvent) {
	defer d.wg.Done()
	for ev := range ch {
		d.deliver(ctx, ev)
	}
}

func (d *NotificationDispatcher) deliver(parent context.Context, ev NotificationEvent) {
	ctx := parent
	if ev.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, ev.span)
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case EventTaskCreated:
		err = d.Notifier.NotifyCreated(ctx, ev.Title, ev.Description)
	case EventTaskCompleted:
		err = d.Notifier.NotifyCompleted(ctx, ev.Title, ev.Description)
	case EventDigest:
		err = d.Notifier.NotifyDigest(ctx, ev.Summary)
	default:
		err = fmt.Errorf("unknown event kind %s", ev.Kind)
	}
	if err != nil {
		logging.Error(ctx, "notification failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		d.Metrics.Notification(string(ev.Kind), "error")
		return
	}
	d.Metrics.Notification(string(ev.Kind), "ok")
}
