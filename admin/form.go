package admin

import (
	"context"
	"errors"
	"sync"

	"github.com/eringen/clubsite/content"
)

var (
	ErrFormClosed     = errors.New("admin: form is closed")
	ErrSubmitInFlight = errors.New("admin: a submit is already in flight")
)

// Mode is the state of a Form.
type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
	ModeSubmitting
)

func (m Mode) String() string {
	switch m {
	case ModeClosed:
		return "closed"
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	case ModeSubmitting:
		return "submitting"
	}
	return "unknown"
}

// Writer is the part of a repository a Form submits to.
type Writer[E content.Record, D content.Draft] interface {
	Create(ctx context.Context, d D) (E, error)
	Update(ctx context.Context, id string, d D) (E, error)
}

// FormConfig wires a Form to its entity.
type FormConfig[E content.Record, D content.Draft] struct {
	Writer Writer[E, D]
	// Blank returns a fresh draft with create defaults.
	Blank func() D
	// Hydrate returns a draft holding every field of e.
	Hydrate func(e E) D
	// OnSuccess runs after a successful submit; mode is the mode the form
	// was submitted from.
	OnSuccess func(ctx context.Context, mode Mode, saved E)
	// OnError runs after a failed submit. The form keeps its fields.
	OnError func(ctx context.Context, mode Mode, err error)
}

// Form is the create/edit controller for one entity type.
//
//	Closed -> Create|Edit -> Submitting -> Closed       (success)
//	                                    -> Create|Edit  (failure, fields kept)
//
// Cancel returns to Closed from any open state.
type Form[E content.Record, D content.Draft] struct {
	cfg FormConfig[E, D]

	mu      sync.Mutex
	mode    Mode
	from    Mode // mode a submit started from
	editing *E
	draft   D
}

func NewForm[E content.Record, D content.Draft](cfg FormConfig[E, D]) *Form[E, D] {
	return &Form[E, D]{cfg: cfg, draft: cfg.Blank()}
}

// Mode returns the current mode.
func (f *Form[E, D]) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Open reports whether the form is showing, including while submitting.
func (f *Form[E, D]) Open() bool {
	return f.Mode() != ModeClosed
}

// Editing returns the record being edited, if any.
func (f *Form[E, D]) Editing() (E, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editing == nil {
		var zero E
		return zero, false
	}
	return *f.editing, true
}

// Draft returns the draft being edited.
func (f *Form[E, D]) Draft() D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form[E, D]) StartCreate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode == ModeSubmitting {
		return ErrSubmitInFlight
	}
	f.mode = ModeCreate
	f.editing = nil
	f.draft = f.cfg.Blank()
	return nil
}

func (f *Form[E, D]) StartEdit(record E) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode == ModeSubmitting {
		return ErrSubmitInFlight
	}
	f.mode = ModeEdit
	f.editing = &record
	f.draft = f.cfg.Hydrate(record)
	return nil
}

func (f *Form[E, D]) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.mode {
	case ModeClosed:
		return ErrFormClosed
	case ModeSubmitting:
		return ErrSubmitInFlight
	}
	return f.draft.SetField(name, value)
}

// Submit creates or updates depending on the mode. Only one submit may be
// in flight at a time.
func (f *Form[E, D]) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.mode {
	case ModeClosed:
		f.mu.Unlock()
		return ErrFormClosed
	case ModeSubmitting:
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	from, draft := f.mode, f.draft
	var id string
	if f.editing != nil {
		id = (*f.editing).RecordID()
	}
	f.from = from
	f.mode = ModeSubmitting
	f.mu.Unlock()

	var (
		saved E
		err   error
	)
	if from == ModeEdit {
		saved, err = f.cfg.Writer.Update(ctx, id, draft)
	} else {
		saved, err = f.cfg.Writer.Create(ctx, draft)
	}

	f.mu.Lock()
	// Cancel during the round trip already closed the form.
	cancelled := f.mode != ModeSubmitting
	if err != nil {
		if !cancelled {
			f.mode = f.from
		}
		f.mu.Unlock()
		if f.cfg.OnError != nil {
			f.cfg.OnError(ctx, from, err)
		}
		return err
	}
	if !cancelled {
		f.reset()
	}
	f.mu.Unlock()
	if f.cfg.OnSuccess != nil {
		f.cfg.OnSuccess(ctx, from, saved)
	}
	return nil
}

// Cancel discards the draft and closes the form. It never touches the
// repository.
func (f *Form[E, D]) Cancel() {
	f.mu.Lock()
	f.reset()
	f.mu.Unlock()
}

func (f *Form[E, D]) reset() {
	f.mode = ModeClosed
	f.editing = nil
	f.draft = f.cfg.Blank()
}
