package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/model"
)

type stubSummarizer struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
	block   chan struct{}
	entered chan struct{}
}

func (s *stubSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.out, s.err
}

func newDigest(t *testing.T, tasks *memTaskDao, sum *stubSummarizer, n *stubNotifier) *WeeklyDigestScheduler {
	t.Helper()
	s, err := NewWeeklyDigestScheduler(bizConfig.DefaultBizConfig().Digest)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.TaskDao, s.Summarizer, s.Notifier = tasks, sum, n
	return s
}

func TestDigestWithNoOpenTasks(t *testing.T) {
	tasks := newMemTaskDao()
	_ = tasks.Insert(context.Background(), &model.Task{ID: "1", Owner: "alice", Title: "done", Completed: true})
	sum, n := &stubSummarizer{}, &stubNotifier{}
	s := newDigest(t, tasks, sum, n)

	msg, err := s.TryRun(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "🎉 You have no open tasks this week! Great job!" {
		t.Fatalf("unexpected message %q", msg)
	}
	calls := n.list()
	if len(calls) != 1 || calls[0].kind != "digest" || calls[0].summary != msg {
		t.Fatalf("expected exactly one digest notification, got %+v", calls)
	}
	if len(sum.prompts) != 0 {
		t.Fatalf("summarizer must not be called without open tasks")
	}
}

func TestDigestSummarizesOpenTasksAcrossOwners(t *testing.T) {
	tasks := newMemTaskDao()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = tasks.Insert(ctx, &model.Task{ID: "1", Owner: "alice", Title: "Write report", Description: "Q3", CreatedAt: base})
	_ = tasks.Insert(ctx, &model.Task{ID: "2", Owner: "bob", Title: "Fix bug", Description: "", CreatedAt: base.Add(time.Hour)})
	_ = tasks.Insert(ctx, &model.Task{ID: "3", Owner: "bob", Title: "Old", Completed: true, CreatedAt: base})
	sum, n := &stubSummarizer{out: "Two open tasks."}, &stubNotifier{}
	s := newDigest(t, tasks, sum, n)

	if _, err := s.TryRun(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Create a weekly summary based on the following open tasks:\n- Write report: Q3\n- Fix bug: \n"
	if len(sum.prompts) != 1 || sum.prompts[0] != want {
		t.Fatalf("unexpected prompt %q", sum.prompts)
	}
	calls := n.list()
	if len(calls) != 1 || calls[0].summary != "Two open tasks." {
		t.Fatalf("unexpected notifications %+v", calls)
	}
}

func TestDigestSummaryFailureSendsNothing(t *testing.T) {
	tasks := newMemTaskDao()
	_ = tasks.Insert(context.Background(), &model.Task{ID: "1", Owner: "alice", Title: "Open"})
	sum := &stubSummarizer{err: &EnrichmentError{Op: "summary", Err: errors.New("quota")}}
	n := &stubNotifier{}
	s := newDigest(t, tasks, sum, n)

	if _, err := s.TryRun(context.Background()); !IsEnrichment(err) {
		t.Fatalf("expected EnrichmentError, got %v", err)
	}
	if len(n.list()) != 0 {
		t.Fatalf("no notification expected")
	}
	if s.Running() {
		t.Fatalf("running flag must be cleared after failure")
	}
}

func TestDigestNotificationFailureIsSwallowed(t *testing.T) {
	n := &stubNotifier{err: errors.New("telegram down")}
	s := newDigest(t, newMemTaskDao(), &stubSummarizer{}, n)
	if _, err := s.TryRun(context.Background()); err != nil {
		t.Fatalf("notification failure must not fail the run: %v", err)
	}
	if len(n.list()) != 1 {
		t.Fatalf("expected one attempt")
	}
}

func TestDigestOverlappingRunIsSkipped(t *testing.T) {
	tasks := newMemTaskDao()
	_ = tasks.Insert(context.Background(), &model.Task{ID: "1", Owner: "alice", Title: "Open"})
	sum := &stubSummarizer{out: "s", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	n := &stubNotifier{}
	s := newDigest(t, tasks, sum, n)

	done := make(chan error, 1)
	go func() {
		_, err := s.TryRun(context.Background())
		done <- err
	}()
	<-sum.entered
	if !s.Running() {
		t.Fatalf("expected running state")
	}
	if _, err := s.TryRun(context.Background()); err != ErrDigestRunning {
		t.Fatalf("expected ErrDigestRunning, got %v", err)
	}
	close(sum.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(n.list()) != 1 {
		t.Fatalf("only the first run may notify, got %d", len(n.list()))
	}
	if s.Running() {
		t.Fatalf("expected idle after run")
	}
}

func TestDigestTickFiresOncePerMatchingSecond(t *testing.T) {
	n := &stubNotifier{}
	s := newDigest(t, newMemTaskDao(), &stubSummarizer{}, n)
	ctx := context.Background()

	sunday := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	s.tick(ctx, sunday.Add(300*time.Millisecond))
	s.tick(ctx, sunday.Add(700*time.Millisecond))
	s.tick(ctx, sunday.Add(time.Second))
	s.tick(ctx, sunday.Add(24*time.Hour))
	s.wg.Wait()
	if got := len(n.list()); got != 1 {
		t.Fatalf("expected one digest, got %d", got)
	}
}

func TestNewWeeklyDigestSchedulerRejectsBadConfig(t *testing.T) {
	cfg := bizConfig.DefaultBizConfig().Digest
	cfg.Cron = "every sunday"
	if _, err := NewWeeklyDigestScheduler(cfg); err == nil {
		t.Fatalf("expected cron error")
	}
	cfg = bizConfig.DefaultBizConfig().Digest
	cfg.Timezone = "Mars/Olympus"
	if _, err := NewWeeklyDigestScheduler(cfg); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestDigestStartStop(t *testing.T) {
	cfg := bizConfig.DefaultBizConfig().Digest
	cfg.PollInterval = 10 * time.Millisecond
	s, err := NewWeeklyDigestScheduler(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.TaskDao, s.Summarizer, s.Notifier = newMemTaskDao(), &stubSummarizer{}, &stubNotifier{}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsActive() {
		t.Fatalf("expected active")
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.IsActive() {
		t.Fatalf("expected inactive")
	}
}

func TestDigestTriggerRunsInBackground(t *testing.T) {
	tasks := newMemTaskDao()
	_ = tasks.Insert(context.Background(), &model.Task{ID: "1", Owner: "alice", Title: "Open"})
	sum := &stubSummarizer{out: "s", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	n := &stubNotifier{}
	s := newDigest(t, tasks, sum, n)

	if err := s.Trigger(context.Background()); err != nil {
		t.Fatalf("first trigger should start a run: %v", err)
	}
	<-sum.entered
	if err := s.Trigger(context.Background()); !errors.Is(err, ErrDigestRunning) {
		t.Fatalf("second trigger must be rejected while running, got %v", err)
	}
	close(sum.block)
	s.wg.Wait()
	if s.Running() {
		t.Fatalf("expected idle after run")
	}
	if len(n.list()) != 1 {
		t.Fatalf("expected one digest notification, got %d", len(n.list()))
	}
}

func TestDigestTriggerAfterStopIsRefused(t *testing.T) {
	tasks := newMemTaskDao()
	_ = tasks.Insert(context.Background(), &model.Task{ID: "1", Owner: "alice", Title: "Open"})
	n := &stubNotifier{}
	s := newDigest(t, tasks, &stubSummarizer{out: "s"}, n)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Trigger(ctx); !errors.Is(err, ErrDigestStopped) {
		t.Fatalf("expected ErrDigestStopped, got %v", err)
	}
	if s.Running() {
		t.Fatalf("refused trigger must not leave the running flag set")
	}
	if len(n.list()) != 0 {
		t.Fatalf("expected no notification, got %d", len(n.list()))
	}
}
