package service

import (
	"context"
	"sort"
	"sync"

	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/dao"
	"github.com/grand-thief-cash/voltify/internal/model"
)

// memTaskDao implements dao.TaskDao in memory, keyed by id but always matched on owner too
type memTaskDao struct {
	*core.BaseComponent
	mu      sync.Mutex
	tasks   map[string]*model.Task
	inserts int
	failErr error
}

func newMemTaskDao() *memTaskDao {
	return &memTaskDao{BaseComponent: core.NewBaseComponent("task_dao"), tasks: map[string]*model.Task{}}
}

func clone(t *model.Task) *model.Task {
	c := *t
	if t.EstimatedMinutes != nil {
		v := *t.EstimatedMinutes
		c.EstimatedMinutes = &v
	}
	return &c
}

func (d *memTaskDao) Find(ctx context.Context, owner string, f *model.TaskFilter) ([]*model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*model.Task
	for _, t := range d.tasks {
		if t.Owner != owner {
			continue
		}
		if f != nil && f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (d *memTaskDao) FindOne(ctx context.Context, owner, id string) (*model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[id]
	if !ok || t.Owner != owner {
		return nil, dao.ErrNotFound
	}
	return clone(t), nil
}

func (d *memTaskDao) Insert(ctx context.Context, t *model.Task) error {
	if d.failErr != nil {
		return d.failErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[t.ID]; ok {
		return dao.ErrDuplicate
	}
	d.inserts++
	d.tasks[t.ID] = clone(t)
	return nil
}

func (d *memTaskDao) UpdateOne(ctx context.Context, owner, id string, p *model.TaskPatch) (dao.UpdateResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[id]
	if !ok || t.Owner != owner {
		return dao.UpdateResult{}, nil
	}
	changed := len(p.Diff(t)) > 0
	p.Apply(t)
	return dao.UpdateResult{Matched: true, Modified: changed}, nil
}

func (d *memTaskDao) DeleteOne(ctx context.Context, owner, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[id]
	if !ok || t.Owner != owner {
		return false, nil
	}
	delete(d.tasks, id)
	return true, nil
}

func (d *memTaskDao) ListOpen(ctx context.Context) ([]*model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*model.Task
	for _, t := range d.tasks {
		if !t.Completed {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (d *memTaskDao) snapshot() map[string]model.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[string]model.Task{}
	for k, v := range d.tasks {
		out[k] = *clone(v)
	}
	return out
}

type stubEnricher struct {
	mu         sync.Mutex
	result     *model.EnrichmentResult
	err        error
	calls      int
	lastText   string
	suggestion string
}

func (e *stubEnricher) Infer(ctx context.Context, text string) (*model.EnrichmentResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.lastText = text
	if e.err != nil {
		return nil, e.err
	}
	r := *e.result
	return &r, nil
}

func (e *stubEnricher) SuggestDescription(ctx context.Context, title string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.suggestion, nil
}

// recordingDispatcher captures events synchronously
type recordingDispatcher struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, ev NotificationEvent) bool {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return true
}

func (r *recordingDispatcher) list() []NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NotificationEvent(nil), r.events...)
}

type notifyCall struct {
	kind        string
	title, desc string
	summary     string
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
	block chan struct{}
}

func (n *stubNotifier) record(c notifyCall) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	n.calls = append(n.calls, c)
	n.mu.Unlock()
	return n.err
}

func (n *stubNotifier) NotifyCreated(ctx context.Context, title, description string) error {
	return n.record(notifyCall{kind: "created", title: title, desc: description})
}

func (n *stubNotifier) NotifyCompleted(ctx context.Context, title, description string) error {
	return n.record(notifyCall{kind: "completed", title: title, desc: description})
}

func (n *stubNotifier) NotifyDigest(ctx context.Context, summary string) error {
	return n.record(notifyCall{kind: "digest", summary: summary})
}

func (n *stubNotifier) list() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}
