package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/grand-thief-cash/voltify/internal/model"
)

type lifecycleFixture struct {
	mgr      *TaskLifecycleManager
	dao      *memTaskDao
	enricher *stubEnricher
	disp     *recordingDispatcher
}

func newLifecycle() *lifecycleFixture {
	f := &lifecycleFixture{
		dao:      newMemTaskDao(),
		enricher: &stubEnricher{result: &model.EnrichmentResult{Category: "Work", EstimatedMinutes: 15}},
		disp:     &recordingDispatcher{},
	}
	seq := 0
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewTaskLifecycleManager()
	m.TaskDao, m.Enricher, m.Dispatcher = f.dao, f.enricher, f.disp
	m.newID = func() string { seq++; return fmt.Sprintf("task-%d", seq) }
	m.now = func() time.Time { return base.Add(time.Duration(seq) * time.Minute) }
	f.mgr = m
	return f
}

func (f *lifecycleFixture) create(t *testing.T, owner string, in model.TaskInput) *model.Task {
	t.Helper()
	task, err := f.mgr.CreateTask(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return task
}

func TestCreateTaskWithAllFieldsSkipsEnrichment(t *testing.T) {
	f := newLifecycle()
	task := f.create(t, "alice", model.TaskInput{Title: "Write report", Description: "", Category: "Work", EstimatedMinutes: "30"})

	if f.enricher.calls != 0 {
		t.Fatalf("enrichment must not be called when both fields are supplied, calls=%d", f.enricher.calls)
	}
	stored := f.dao.snapshot()[task.ID]
	if stored.Title != "Write report" || stored.Description != "" || stored.Category != "Work" ||
		stored.EstimatedMinutes == nil || *stored.EstimatedMinutes != 30 || stored.Completed || stored.Owner != "alice" {
		t.Fatalf("unexpected stored task %+v", stored)
	}
	if stored.ID == "" || stored.CreatedAt.IsZero() {
		t.Fatalf("id and created_at must be assigned: %+v", stored)
	}
	ev := f.disp.list()
	if len(ev) != 1 || ev[0].Kind != EventTaskCreated || ev[0].Title != "Write report" || ev[0].Description != "" {
		t.Fatalf("expected one created notification, got %+v", ev)
	}
}

func TestCreateTaskEnrichesMissingFields(t *testing.T) {
	cases := []struct {
		name       string
		in         model.TaskInput
		wantSource string
	}{
		{"both missing", model.TaskInput{Title: "Fix bug"}, "Fix bug"},
		{"category missing", model.TaskInput{Title: "Fix bug", Description: "null pointer in parser", EstimatedMinutes: "90"}, "null pointer in parser"},
		{"minutes missing", model.TaskInput{Title: "Fix bug", Category: "Personal"}, "Fix bug"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycle()
			task := f.create(t, "alice", tc.in)
			if f.enricher.calls != 1 {
				t.Fatalf("expected exactly one enrichment call, got %d", f.enricher.calls)
			}
			if f.enricher.lastText != tc.wantSource {
				t.Fatalf("enrichment source %q, want %q", f.enricher.lastText, tc.wantSource)
			}
			stored := f.dao.snapshot()[task.ID]
			if stored.Category != "Work" || stored.EstimatedMinutes == nil || *stored.EstimatedMinutes != 15 {
				t.Fatalf("both fields must come from enrichment, got %+v", stored)
			}
		})
	}
}

func TestCreateTaskValidation(t *testing.T) {
	cases := []struct {
		name string
		in   model.TaskInput
	}{
		{"empty title", model.TaskInput{Title: ""}},
		{"blank title", model.TaskInput{Title: "   "}},
		{"one char title", model.TaskInput{Title: "x"}},
		{"zero minutes", model.TaskInput{Title: "Fix bug", Category: "Work", EstimatedMinutes: "0"}},
		{"negative minutes", model.TaskInput{Title: "Fix bug", Category: "Work", EstimatedMinutes: "-5"}},
		{"non numeric minutes", model.TaskInput{Title: "Fix bug", Category: "Work", EstimatedMinutes: "abc"}},
		{"fractional minutes", model.TaskInput{Title: "Fix bug", Category: "Work", EstimatedMinutes: "1.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycle()
			_, err := f.mgr.CreateTask(context.Background(), "alice", tc.in)
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(f.dao.snapshot()) != 0 || f.dao.inserts != 0 {
				t.Fatalf("nothing may be persisted on validation failure")
			}
			if f.enricher.calls != 0 || len(f.disp.list()) != 0 {
				t.Fatalf("no side effects expected on validation failure")
			}
		})
	}
}

func TestCreateTaskTwoCharTitleAccepted(t *testing.T) {
	f := newLifecycle()
	task := f.create(t, "alice", model.TaskInput{Title: "ok", Category: "Work", EstimatedMinutes: "5"})
	if task.Title != "ok" {
		t.Fatalf("unexpected title %q", task.Title)
	}
}

func TestCreateTaskEnrichmentFailureAborts(t *testing.T) {
	f := newLifecycle()
	f.enricher.err = &EnrichmentError{Op: "infer", Err: errors.New("quota exceeded")}
	_, err := f.mgr.CreateTask(context.Background(), "alice", model.TaskInput{Title: "Fix bug"})
	if !IsEnrichment(err) {
		t.Fatalf("expected EnrichmentError, got %v", err)
	}
	if len(f.dao.snapshot()) != 0 || len(f.disp.list()) != 0 {
		t.Fatalf("creation must be aborted without side effects")
	}

	// 非 EnrichmentError 也统一包装
	f.enricher.err = errors.New("boom")
	if _, err := f.mgr.CreateTask(context.Background(), "alice", model.TaskInput{Title: "Fix bug"}); !IsEnrichment(err) {
		t.Fatalf("expected wrapped EnrichmentError, got %v", err)
	}
}

func TestCreateTaskStoreFailureSendsNothing(t *testing.T) {
	f := newLifecycle()
	f.dao.failErr = errors.New("db down")
	_, err := f.mgr.CreateTask(context.Background(), "alice", model.TaskInput{Title: "Fix bug", Category: "Work", EstimatedMinutes: "5"})
	if err == nil || IsValidation(err) || IsNotFound(err) {
		t.Fatalf("expected plain store error, got %v", err)
	}
	if len(f.disp.list()) != 0 {
		t.Fatalf("notification must follow persistence")
	}
}

func TestForeignOwnerIsNotFound(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	task := f.create(t, "alice", model.TaskInput{Title: "Secret plan", Description: "private", Category: "Work", EstimatedMinutes: "10"})
	before := f.dao.snapshot()

	if _, err := f.mgr.GetTask(ctx, "bob", task.ID); !IsNotFound(err) {
		t.Fatalf("get: expected NotFound, got %v", err)
	}
	if _, err := f.mgr.UpdateTask(ctx, "bob", task.ID, model.TaskInput{Title: "Hijack"}); !IsNotFound(err) {
		t.Fatalf("update: expected NotFound, got %v", err)
	}
	if _, err := f.mgr.SetCompletion(ctx, "bob", task.ID, true); !IsNotFound(err) {
		t.Fatalf("complete: expected NotFound, got %v", err)
	}
	if err := f.mgr.DeleteTask(ctx, "bob", task.ID); !IsNotFound(err) {
		t.Fatalf("delete: expected NotFound, got %v", err)
	}
	if _, err := f.mgr.ApplySuggestedDescription(ctx, "bob", task.ID, "stolen"); !IsNotFound(err) {
		t.Fatalf("apply description: expected NotFound, got %v", err)
	}
	if _, err := f.mgr.SuggestDescription(ctx, "bob", task.ID); !IsNotFound(err) {
		t.Fatalf("suggest description: expected NotFound, got %v", err)
	}
	list, _ := f.mgr.ListTasks(ctx, "bob", nil)
	if len(list) != 0 {
		t.Fatalf("bob must not see alice's tasks: %+v", list)
	}
	after := f.dao.snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("store changed by foreign requests:\nbefore %v\nafter  %v", before, after)
	}
	if n := len(f.disp.list()); n != 1 {
		t.Fatalf("only the creation notification expected, got %d", n)
	}
}

func TestDeleteTask(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	task := f.create(t, "alice", model.TaskInput{Title: "Fix bug", Category: "Work", EstimatedMinutes: "5"})

	if err := f.mgr.DeleteTask(ctx, "alice", "missing"); !IsNotFound(err) {
		t.Fatalf("expected NotFound for missing id, got %v", err)
	}
	if len(f.dao.snapshot()) != 1 {
		t.Fatalf("store must be unchanged")
	}
	if err := f.mgr.DeleteTask(ctx, "alice", task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.mgr.DeleteTask(ctx, "alice", task.ID); !IsNotFound(err) {
		t.Fatalf("second delete: expected NotFound, got %v", err)
	}
}

func TestSetCompletionNotifiesEveryTime(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	task := f.create(t, "alice", model.TaskInput{Title: "Fix bug", Description: "parser", Category: "Work", EstimatedMinutes: "5"})

	for i := 0; i < 2; i++ {
		got, err := f.mgr.SetCompletion(ctx, "alice", task.ID, true)
		if err != nil {
			t.Fatalf("complete #%d: %v", i+1, err)
		}
		if !got.Completed {
			t.Fatalf("task should be completed")
		}
	}
	var completed int
	for _, ev := range f.disp.list() {
		if ev.Kind == EventTaskCompleted {
			completed++
			if ev.Title != "Fix bug" || ev.Description != "parser" {
				t.Fatalf("unexpected event %+v", ev)
			}
		}
	}
	if completed != 2 {
		t.Fatalf("expected 2 completion notifications, got %d", completed)
	}

	if _, err := f.mgr.SetCompletion(ctx, "alice", task.ID, false); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if n := len(f.disp.list()); n != 3 {
		t.Fatalf("reopening must not notify, events=%d", n)
	}
	if _, err := f.mgr.SetCompletion(ctx, "alice", "missing", true); !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	task := f.create(t, "alice", model.TaskInput{Title: "Fix bug", Category: "Study", EstimatedMinutes: "20"})

	got, err := f.mgr.UpdateTask(ctx, "alice", task.ID, model.TaskInput{Title: "Fix parser bug", Description: "edge case", Priority: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Fix parser bug" || !got.Priority || got.Category != "Study" || *got.EstimatedMinutes != 20 {
		t.Fatalf("absent category/minutes must be kept: %+v", got)
	}
	if f.enricher.calls != 0 {
		t.Fatalf("update never enriches")
	}
	if n := len(f.disp.list()); n != 1 {
		t.Fatalf("no completion notification expected yet, events=%d", n)
	}

	got, err = f.mgr.UpdateTask(ctx, "alice", task.ID, model.TaskInput{Title: "Fix parser bug", Completed: true, Category: "Work", EstimatedMinutes: "45"})
	if err != nil {
		t.Fatalf("complete via update: %v", err)
	}
	if !got.Completed || got.Category != "Work" || *got.EstimatedMinutes != 45 {
		t.Fatalf("unexpected task %+v", got)
	}
	ev := f.disp.list()
	if len(ev) != 2 || ev[1].Kind != EventTaskCompleted || ev[1].Title != "Fix parser bug" {
		t.Fatalf("expected completion notification on false->true, got %+v", ev)
	}

	// 已完成再次保存为完成不通知
	if _, err := f.mgr.UpdateTask(ctx, "alice", task.ID, model.TaskInput{Title: "Fix parser bug", Completed: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if n := len(f.disp.list()); n != 2 {
		t.Fatalf("true->true update must not notify, events=%d", n)
	}

	if _, err := f.mgr.UpdateTask(ctx, "alice", task.ID, model.TaskInput{Title: "x"}); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := f.mgr.UpdateTask(ctx, "alice", task.ID, model.TaskInput{Title: "Fix", EstimatedMinutes: "-1"}); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestApplySuggestedDescription(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	task := f.create(t, "alice", model.TaskInput{Title: "Fix bug", Description: "old", Category: "Work", EstimatedMinutes: "5"})

	if _, err := f.mgr.ApplySuggestedDescription(ctx, "alice", task.ID, "  "); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got, err := f.mgr.ApplySuggestedDescription(ctx, "alice", task.ID, "Reproduce, fix and add a test")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Description != "Reproduce, fix and add a test" {
		t.Fatalf("unexpected description %q", got.Description)
	}
	if _, err := f.mgr.ApplySuggestedDescription(ctx, "alice", task.ID, "Reproduce, fix and add a test"); !IsNotFound(err) {
		t.Fatalf("no-op update must report NotFound, got %v", err)
	}
	if _, err := f.mgr.ApplySuggestedDescription(ctx, "alice", "missing", "x"); !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSuggestDescription(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	task := f.create(t, "alice", model.TaskInput{Title: "Plan trip", Category: "Personal", EstimatedMinutes: "60"})

	f.enricher.suggestion = "Book flights and hotel"
	s, err := f.mgr.SuggestDescription(ctx, "alice", task.ID)
	if err != nil || s != "Book flights and hotel" {
		t.Fatalf("suggest: %q %v", s, err)
	}
	if f.dao.snapshot()[task.ID].Description != "" {
		t.Fatalf("suggestion must not be persisted")
	}
	f.enricher.err = &EnrichmentError{Op: "describe", Err: errors.New("timeout")}
	if _, err := f.mgr.SuggestDescription(ctx, "alice", task.ID); !IsEnrichment(err) {
		t.Fatalf("expected EnrichmentError, got %v", err)
	}
}

func TestListTasksOrderAndFilter(t *testing.T) {
	f := newLifecycle()
	ctx := context.Background()
	a := f.create(t, "alice", model.TaskInput{Title: "first", Category: "Work", EstimatedMinutes: "5"})
	b := f.create(t, "alice", model.TaskInput{Title: "urgent", Priority: true, Category: "Work", EstimatedMinutes: "5"})
	c := f.create(t, "alice", model.TaskInput{Title: "latest", Category: "Work", EstimatedMinutes: "5"})
	if _, err := f.mgr.SetCompletion(ctx, "alice", a.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}

	list, err := f.mgr.ListTasks(ctx, "alice", nil)
	if err != nil || len(list) != 3 || list[0].ID != b.ID || list[1].ID != c.ID || list[2].ID != a.ID {
		t.Fatalf("unexpected order %+v %v", list, err)
	}
	open := false
	list, _ = f.mgr.ListTasks(ctx, "alice", &model.TaskFilter{Completed: &open})
	if len(list) != 2 {
		t.Fatalf("expected 2 open tasks, got %d", len(list))
	}
}

func TestParseEstimatedMinutes(t *testing.T) {
	if v, err := ParseEstimatedMinutes(""); v != nil || err != nil {
		t.Fatalf("empty should be absent: %v %v", v, err)
	}
	if v, err := ParseEstimatedMinutes(" 30 "); err != nil || *v != 30 {
		t.Fatalf("unexpected %v %v", v, err)
	}
	for _, bad := range []string{"0", "-5", "abc", "3.5", "1e3"} {
		if _, err := ParseEstimatedMinutes(bad); !IsValidation(err) {
			t.Fatalf("%q: expected ValidationError, got %v", bad, err)
		}
	}
}
