// Package admin holds the state behind the club admin panel: list caches,
// create/edit forms, and the panel that ties them together. All state lives
// in explicit objects; mutations are always followed by a full refetch.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/clubsite/content"
)

var (
	ErrConfirmationAborted = errors.New("admin: deletion not confirmed")
	ErrUnknownSection      = errors.New("admin: unknown section")
)

// SectionID names one accordion section of the panel.
type SectionID string

const (
	SectionNone         SectionID = ""
	SectionEvents       SectionID = "events"
	SectionBlogs        SectionID = "blogs"
	SectionMembers      SectionID = "members"
	SectionTestimonials SectionID = "testimonials"
)

// Sections lists the panel sections in display order.
var Sections = []SectionID{SectionEvents, SectionBlogs, SectionMembers, SectionTestimonials}

func ParseSection(s string) (SectionID, error) {
	for _, id := range Sections {
		if string(id) == s {
			return id, nil
		}
	}
	return SectionNone, fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// Level is the severity of a Notification.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
	// LevelInfo reports an outcome that is neither a success nor a failure,
	// such as a declined confirmation.
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelInfo:
		return "info"
	}
	return "success"
}

// Notification is a transient user-visible message. Key is a message id
// resolved by the notify package; Data fills its template.
type Notification struct {
	Level Level
	Key   string
	Data  map[string]any
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Confirmer asks the user to acknowledge a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, section SectionID, id string) bool
}

type ConfirmFunc func(ctx context.Context, section SectionID, id string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, section SectionID, id string) bool {
	return f(ctx, section, id)
}

// Repository is what a managed section needs from its entity repository.
type Repository[E content.Record, D content.Draft] interface {
	Writer[E, D]
	List(ctx context.Context, opt content.ListOptions) ([]E, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// TestimonialReader is the read-only testimonial repository.
type TestimonialReader interface {
	List(ctx context.Context, opt content.ListOptions) ([]content.Testimonial, error)
	Count(ctx context.Context) (int, error)
}

// Stats backs the dashboard tiles. TotalMembers is the static roster size.
type Stats struct {
	TotalMembers      int
	TotalEvents       int
	TotalTestimonials int
	TotalBlogPosts    int
}

// Section is one managed entity: its form, its list and its repository.
type Section[E content.Record, D content.Draft] struct {
	ID    SectionID
	Form  *Form[E, D]
	Cache *ListCache[E]
	repo  Repository[E, D]
	// noun prefixes notification keys, e.g. "event.created".
	noun string
	// label names a record in notifications.
	label func(E) string
}

// Find returns the cached record with id.
func (s *Section[E, D]) Find(id string) (E, bool) {
	for _, e := range s.Cache.Items() {
		if e.RecordID() == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Deps are the collaborators of a Panel.
type Deps struct {
	Events       Repository[content.Event, *content.EventDraft]
	Blogs        Repository[content.BlogPost, *content.BlogDraft]
	Testimonials TestimonialReader
	Notifier     Notifier
	MemberCount  int
	// OnMutation runs after every successful create, update or delete.
	OnMutation func()
	Logger     *zap.Logger
}

// Panel orchestrates the admin dashboard for one admin session.
type Panel struct {
	Events       *Section[content.Event, *content.EventDraft]
	Blogs        *Section[content.BlogPost, *content.BlogDraft]
	Testimonials *ListCache[content.Testimonial]

	deps Deps
	log  *zap.Logger

	mu       sync.Mutex
	expanded SectionID
	stats    Stats
}

func NewPanel(deps Deps) *Panel {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = NotifierFunc(func(Notification) {})
	}
	p := &Panel{
		deps:  deps,
		log:   deps.Logger,
		stats: Stats{TotalMembers: deps.MemberCount},
	}

	p.Events = newSection(p, SectionEvents, "event", deps.Events, content.AdminEvents,
		func() *content.EventDraft { d := content.NewEventDraft(); return &d },
		func(e content.Event) *content.EventDraft { d := content.EventDraftFrom(e); return &d },
		func(e content.Event) string { return e.Title })
	p.Blogs = newSection(p, SectionBlogs, "post", deps.Blogs, content.AllPosts,
		func() *content.BlogDraft { d := content.NewBlogDraft(); return &d },
		func(b content.BlogPost) *content.BlogDraft { d := content.BlogDraftFrom(b); return &d },
		func(b content.BlogPost) string { return b.Title })
	p.Testimonials = NewListCache[content.Testimonial](func(ctx context.Context) ([]content.Testimonial, error) {
		return deps.Testimonials.List(ctx, content.AllTestimonials)
	})
	return p
}

func newSection[E content.Record, D content.Draft](
	p *Panel, id SectionID, noun string, repo Repository[E, D], opt content.ListOptions,
	blank func() D, hydrate func(E) D, label func(E) string,
) *Section[E, D] {
	s := &Section[E, D]{ID: id, repo: repo, noun: noun, label: label}
	s.Cache = NewListCache[E](func(ctx context.Context) ([]E, error) {
		return repo.List(ctx, opt)
	})
	s.Form = NewForm(FormConfig[E, D]{
		Writer:  repo,
		Blank:   blank,
		Hydrate: hydrate,
		OnSuccess: func(ctx context.Context, mode Mode, saved E) {
			key := noun + ".created"
			if mode == ModeEdit {
				key = noun + ".updated"
			}
			p.afterMutation(ctx, s.Cache)
			p.deps.Notifier.Notify(Notification{Level: LevelSuccess, Key: key, Data: map[string]any{"Title": label(saved)}})
		},
		OnError: func(ctx context.Context, mode Mode, err error) {
			p.log.Warn("save failed", zap.String("section", string(id)), zap.Stringer("mode", mode), zap.Error(err))
			p.deps.Notifier.Notify(Notification{Level: LevelError, Key: noun + ".save_failed", Data: map[string]any{"Error": err.Error()}})
		},
	})
	return s
}

// Expanded returns the open section, or SectionNone.
func (p *Panel) Expanded() SectionID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expanded
}

// Toggle opens section, collapsing any other one, or collapses it if it is
// already open. A collapsing section loses its form draft.
func (p *Panel) Toggle(section SectionID) (SectionID, error) {
	if _, err := ParseSection(string(section)); err != nil {
		return p.Expanded(), err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelForm(p.expanded)
	if p.expanded == section {
		p.expanded = SectionNone
	} else {
		p.expanded = section
	}
	return p.expanded, nil
}

// Expand opens section without collapsing it when it is already open.
func (p *Panel) Expand(section SectionID) error {
	if _, err := ParseSection(string(section)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expanded != section {
		p.cancelForm(p.expanded)
		p.expanded = section
	}
	return nil
}

func (p *Panel) cancelForm(section SectionID) {
	switch section {
	case SectionEvents:
		p.Events.Form.Cancel()
	case SectionBlogs:
		p.Blogs.Form.Cancel()
	}
}

func (p *Panel) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Mount loads every list and the stats concurrently. Each load fails
// independently; the first error is returned after all have finished.
func (p *Panel) Mount(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return p.refresh(ctx, SectionEvents, p.Events.Cache.Refresh) })
	g.Go(func() error { return p.refresh(ctx, SectionBlogs, p.Blogs.Cache.Refresh) })
	g.Go(func() error { return p.refresh(ctx, SectionTestimonials, p.Testimonials.Refresh) })
	g.Go(func() error { return p.Recount(ctx) })
	return g.Wait()
}

func (p *Panel) refresh(ctx context.Context, section SectionID, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		p.log.Warn("refresh failed", zap.String("section", string(section)), zap.Error(err))
		return err
	}
	return nil
}

// Recount re-runs the aggregate counts. The tiles keep their previous
// values unless all three counts succeed.
func (p *Panel) Recount(ctx context.Context) error {
	var events, posts, testimonials int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { events, err = p.deps.Events.Count(gctx); return })
	g.Go(func() (err error) { posts, err = p.deps.Blogs.Count(gctx); return })
	g.Go(func() (err error) { testimonials, err = p.deps.Testimonials.Count(gctx); return })
	if err := g.Wait(); err != nil {
		p.log.Warn("recount failed", zap.Error(err))
		return err
	}
	p.mu.Lock()
	p.stats = Stats{
		TotalMembers:      p.deps.MemberCount,
		TotalEvents:       events,
		TotalTestimonials: testimonials,
		TotalBlogPosts:    posts,
	}
	p.mu.Unlock()
	return nil
}

// Delete removes one record after the confirmer accepts. A declined
// confirmation returns ErrConfirmationAborted and changes nothing.
func (p *Panel) Delete(ctx context.Context, section SectionID, id string, confirm Confirmer) error {
	switch section {
	case SectionEvents:
		return deleteRecord(ctx, p, p.Events, id, confirm)
	case SectionBlogs:
		return deleteRecord(ctx, p, p.Blogs, id, confirm)
	}
	return fmt.Errorf("%w: %q cannot delete", ErrUnknownSection, section)
}

func deleteRecord[E content.Record, D content.Draft](ctx context.Context, p *Panel, s *Section[E, D], id string, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(ctx, s.ID, id) {
		return ErrConfirmationAborted
	}
	title := id
	if e, ok := s.Find(id); ok {
		title = s.label(e)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		p.log.Warn("delete failed", zap.String("section", string(s.ID)), zap.String("id", id), zap.Error(err))
		p.deps.Notifier.Notify(Notification{Level: LevelError, Key: s.noun + ".delete_failed", Data: map[string]any{"Title": title, "Error": err.Error()}})
		return err
	}
	if e, ok := s.Form.Editing(); ok && e.RecordID() == id {
		s.Form.Cancel()
	}
	p.afterMutation(ctx, s.Cache)
	p.deps.Notifier.Notify(Notification{Level: LevelSuccess, Key: s.noun + ".deleted", Data: map[string]any{"Title": title}})
	return nil
}

// afterMutation refetches the changed list and the counts. Their failures
// are logged; the mutation itself already succeeded.
func (p *Panel) afterMutation(ctx context.Context, cache interface{ Refresh(context.Context) error }) {
	if p.deps.OnMutation != nil {
		p.deps.OnMutation()
	}
	var g errgroup.Group
	g.Go(func() error { return cache.Refresh(ctx) })
	g.Go(func() error { return p.Recount(ctx) })
	if err := g.Wait(); err != nil {
		p.log.Warn("refetch after mutation failed", zap.Error(err))
	}
}
