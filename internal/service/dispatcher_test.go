package service

import (
	"context"
	"errors"
	"testing"
	"time"

	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestDispatcherDeliversEvents(t *testing.T) {
	n := &stubNotifier{}
	d := NewNotificationDispatcher(bizConfig.DispatcherConfig{Workers: 2, QueueSize: 10})
	d.Notifier = n
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop(ctx)

	d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: "a", Description: "b"})
	d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCompleted, Title: "a", Description: "b"})
	d.Dispatch(ctx, NotificationEvent{Kind: EventDigest, Summary: "s"})
	waitFor(t, func() bool { return len(n.list()) == 3 })

	kinds := map[string]int{}
	for _, c := range n.list() {
		kinds[c.kind]++
	}
	if kinds["created"] != 1 || kinds["completed"] != 1 || kinds["digest"] != 1 {
		t.Fatalf("unexpected deliveries %v", kinds)
	}
}

func TestDispatcherFailureIsSwallowed(t *testing.T) {
	n := &stubNotifier{err: &NotificationError{Kind: "task_created", Err: errors.New("down")}}
	d := NewNotificationDispatcher(bizConfig.DispatcherConfig{Workers: 1, QueueSize: 4})
	d.Notifier = n
	ctx := context.Background()
	_ = d.Start(ctx)
	defer d.Stop(ctx)

	if !d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: "a"}) {
		t.Fatalf("dispatch should accept the event")
	}
	waitFor(t, func() bool { return len(n.list()) == 1 })
	// worker 仍然可用
	d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: "b"})
	waitFor(t, func() bool { return len(n.list()) == 2 })
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	n := &stubNotifier{block: make(chan struct{})}
	d := NewNotificationDispatcher(bizConfig.DispatcherConfig{Workers: 1, QueueSize: 1})
	d.Notifier = n
	ctx := context.Background()
	_ = d.Start(ctx)

	// 第一个事件被 worker 取走并阻塞, 第二个占满队列
	d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: "1"})
	time.Sleep(20 * time.Millisecond)
	d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: "2"})

	start := time.Now()
	if d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated, Title: "3"}) {
		t.Fatalf("expected the event to be dropped when the queue is full")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("dispatch must not block")
	}
	close(n.block)
	_ = d.Stop(ctx)
	if got := len(n.list()); got != 2 {
		t.Fatalf("expected queued events to drain on stop, got %d", got)
	}
}

func TestDispatchAfterStopIsDropped(t *testing.T) {
	d := NewNotificationDispatcher(bizConfig.DispatcherConfig{})
	d.Notifier = &stubNotifier{}
	ctx := context.Background()
	_ = d.Start(ctx)
	_ = d.Stop(ctx)
	if d.Dispatch(ctx, NotificationEvent{Kind: EventTaskCreated}) {
		t.Fatalf("stopped dispatcher must drop events")
	}
}
