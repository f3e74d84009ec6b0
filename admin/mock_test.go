package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eringen/clubsite/content"
)

var errNotImplemented = errors.New("not implemented")

// mockRepository records calls and delegates to its func fields.
type mockRepository[E content.Record, D content.Draft] struct {
	listFunc   func(ctx context.Context, opt content.ListOptions) ([]E, error)
	createFunc func(ctx context.Context, d D) (E, error)
	updateFunc func(ctx context.Context, id string, d D) (E, error)
	deleteFunc func(ctx context.Context, id string) error
	countFunc  func(ctx context.Context) (int, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockRepository[E, D]) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockRepository[E, D]) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository[E, D]) List(ctx context.Context, opt content.ListOptions) ([]E, error) {
	m.record("list")
	if m.listFunc != nil {
		return m.listFunc(ctx, opt)
	}
	return nil, errNotImplemented
}

func (m *mockRepository[E, D]) Create(ctx context.Context, d D) (E, error) {
	m.record("create")
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	var zero E
	return zero, errNotImplemented
}

func (m *mockRepository[E, D]) Update(ctx context.Context, id string, d D) (E, error) {
	m.record("update:" + id)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, d)
	}
	var zero E
	return zero, errNotImplemented
}

func (m *mockRepository[E, D]) Delete(ctx context.Context, id string) error {
	m.record("delete:" + id)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *mockRepository[E, D]) Count(ctx context.Context) (int, error) {
	m.record("count")
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, errNotImplemented
}

type mockTestimonialReader struct {
	listFunc  func(ctx context.Context, opt content.ListOptions) ([]content.Testimonial, error)
	countFunc func(ctx context.Context) (int, error)
}

func (m *mockTestimonialReader) List(ctx context.Context, opt content.ListOptions) ([]content.Testimonial, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, opt)
	}
	return nil, errNotImplemented
}

func (m *mockTestimonialReader) Count(ctx context.Context) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, errNotImplemented
}

// eventTable is an in-memory events table behind a mockRepository. Rows
// are kept newest first, like the admin list order.
type eventTable struct {
	mu   sync.Mutex
	rows []content.Event
	next int
	// fail makes every call return this error while set.
	fail error
}

func (t *eventTable) repo() *mockRepository[content.Event, *content.EventDraft] {
	return &mockRepository[content.Event, *content.EventDraft]{
		listFunc: func(context.Context, content.ListOptions) ([]content.Event, error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.fail != nil {
				return nil, t.fail
			}
			return append([]content.Event(nil), t.rows...), nil
		},
		createFunc: func(_ context.Context, d *content.EventDraft) (content.Event, error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.fail != nil {
				return content.Event{}, t.fail
			}
			t.next++
			e := content.Event{ID: fmt.Sprintf("ev-%d", t.next), Title: d.Title, Description: d.Description, EventType: d.EventType, Status: d.Status}
			t.rows = append([]content.Event{e}, t.rows...)
			return e, nil
		},
		updateFunc: func(_ context.Context, id string, d *content.EventDraft) (content.Event, error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.fail != nil {
				return content.Event{}, t.fail
			}
			for i, e := range t.rows {
				if e.ID == id {
					e.Title, e.Description, e.EventType, e.Status = d.Title, d.Description, d.EventType, d.Status
					t.rows[i] = e
					return e, nil
				}
			}
			return content.Event{}, content.ErrNotFound
		},
		deleteFunc: func(_ context.Context, id string) error {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.fail != nil {
				return t.fail
			}
			for i, e := range t.rows {
				if e.ID == id {
					t.rows = append(t.rows[:i], t.rows[i+1:]...)
					return nil
				}
			}
			return content.ErrNotFound
		},
		countFunc: func(context.Context) (int, error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.fail != nil {
				return 0, t.fail
			}
			return len(t.rows), nil
		},
	}
}

func (t *eventTable) setFail(err error) {
	t.mu.Lock()
	t.fail = err
	t.mu.Unlock()
}

// notifications collects everything sent to a Notifier.
type notifications struct {
	mu  sync.Mutex
	got []Notification
}

func (n *notifications) Notify(x Notification) {
	n.mu.Lock()
	n.got = append(n.got, x)
	n.mu.Unlock()
}

func (n *notifications) Keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, len(n.got))
	for i, x := range n.got {
		keys[i] = x.Key
	}
	return keys
}
