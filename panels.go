package clubsite

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/notify"
)

// panelEntry is the admin panel state of one signed-in session.
type panelEntry struct {
	panel    *admin.Panel
	flash    *notify.Flash
	lastSeen time.Time
}

// panelRegistry keeps one admin.Panel per admin session and evicts panels
// that have been idle longer than ttl.
type panelRegistry struct {
	ttl     time.Duration
	factory func() (*admin.Panel, *notify.Flash)
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*panelEntry

	stop     chan struct{}
	stopOnce sync.Once
}

func newPanelRegistry(ttl time.Duration, factory func() (*admin.Panel, *notify.Flash), log *zap.Logger) *panelRegistry {
	r := &panelRegistry{
		ttl:     ttl,
		factory: factory,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*panelEntry),
		stop:    make(chan struct{}),
	}
	go r.janitor()
	return r
}

// get returns the panel for sid, creating and mounting it on first use.
// Mount failures are logged; the panel then shows its loading errors.
func (r *panelRegistry) get(ctx context.Context, sid string) (*admin.Panel, *notify.Flash) {
	r.mu.Lock()
	e, ok := r.entries[sid]
	if ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.panel, e.flash
	}
	p, f := r.factory()
	e = &panelEntry{panel: p, flash: f, lastSeen: r.now()}
	r.entries[sid] = e
	r.mu.Unlock()

	if err := p.Mount(ctx); err != nil {
		r.log.Warn("panel mount incomplete", zap.Error(err))
	}
	return p, f
}

func (r *panelRegistry) drop(sid string) {
	r.mu.Lock()
	delete(r.entries, sid)
	r.mu.Unlock()
}

func (r *panelRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *panelRegistry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	for sid, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, sid)
		}
	}
}

func (r *panelRegistry) janitor() {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stop:
			return
		}
	}
}

func (r *panelRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
