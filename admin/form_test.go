package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/clubsite/content"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type formHooks struct {
	successes []Mode
	failures  []error
}

func newEventForm(repo Writer[content.Event, *content.EventDraft], h *formHooks) *Form[content.Event, *content.EventDraft] {
	return NewForm(FormConfig[content.Event, *content.EventDraft]{
		Writer:  repo,
		Blank:   func() *content.EventDraft { d := content.NewEventDraft(); return &d },
		Hydrate: func(e content.Event) *content.EventDraft { d := content.EventDraftFrom(e); return &d },
		OnSuccess: func(_ context.Context, mode Mode, _ content.Event) {
			h.successes = append(h.successes, mode)
		},
		OnError: func(_ context.Context, _ Mode, err error) {
			h.failures = append(h.failures, err)
		},
	})
}

func TestFormStartsClosed(t *testing.T) {
	repo := &mockRepository[content.Event, *content.EventDraft]{}
	f := newEventForm(repo, &formHooks{})

	assert.Equal(t, ModeClosed, f.Mode())
	assert.ErrorIs(t, f.SetField("title", "x"), ErrFormClosed)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrFormClosed)
	assert.Empty(t, repo.Calls())
}

func TestFormCreateDefaults(t *testing.T) {
	f := newEventForm(&mockRepository[content.Event, *content.EventDraft]{}, &formHooks{})
	require.NoError(t, f.StartCreate())

	assert.Equal(t, ModeCreate, f.Mode())
	d := f.Draft()
	assert.Equal(t, content.StatusUpcoming, d.Status)
	assert.Empty(t, d.Title)
	_, editing := f.Editing()
	assert.False(t, editing)
}

func TestFormCancelMakesNoCalls(t *testing.T) {
	repo := &mockRepository[content.Event, *content.EventDraft]{}
	f := newEventForm(repo, &formHooks{})

	require.NoError(t, f.StartCreate())
	require.NoError(t, f.SetField("title", "Typing Speed Duel"))
	f.Cancel()
	assert.Equal(t, ModeClosed, f.Mode())
	assert.Empty(t, f.Draft().Title)

	require.NoError(t, f.StartEdit(content.Event{ID: "ev-1", Title: "Quiz"}))
	f.Cancel()
	assert.Equal(t, ModeClosed, f.Mode())
	assert.Empty(t, repo.Calls())
}

func TestFormSubmitCreateSuccess(t *testing.T) {
	var sent *content.EventDraft
	repo := &mockRepository[content.Event, *content.EventDraft]{
		createFunc: func(_ context.Context, d *content.EventDraft) (content.Event, error) {
			sent = d
			return content.Event{ID: "ev-1", Title: d.Title}, nil
		},
	}
	h := &formHooks{}
	f := newEventForm(repo, h)

	require.NoError(t, f.StartCreate())
	require.NoError(t, f.SetField("title", "WarP Intra '26"))
	require.NoError(t, f.SetField("eventType", "Hackathon"))
	require.NoError(t, f.SetField("maxParticipants", "100"))
	require.NoError(t, f.Submit(context.Background()))

	row, err := sent.Row()
	require.NoError(t, err)
	assert.Equal(t, int64(100), row["max_participants"])

	assert.Equal(t, []string{"create"}, repo.Calls())
	assert.Equal(t, []Mode{ModeCreate}, h.successes)
	assert.Equal(t, ModeClosed, f.Mode())
	assert.Empty(t, f.Draft().Title)
}

func TestFormSubmitFailureKeepsFields(t *testing.T) {
	boom := errors.New("insert rejected")
	repo := &mockRepository[content.Event, *content.EventDraft]{
		updateFunc: func(context.Context, string, *content.EventDraft) (content.Event, error) {
			return content.Event{}, boom
		},
	}
	h := &formHooks{}
	f := newEventForm(repo, h)

	require.NoError(t, f.StartEdit(content.Event{ID: "ev-7", Title: "Old", Description: "d", EventType: "Intra", Status: content.StatusOngoing}))
	require.NoError(t, f.SetField("title", "New title"))

	err := f.Submit(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ModeEdit, f.Mode())
	assert.Equal(t, "New title", f.Draft().Title)
	e, ok := f.Editing()
	require.True(t, ok)
	assert.Equal(t, "ev-7", e.ID)
	assert.Equal(t, []error{boom}, h.failures)
	assert.Empty(t, h.successes)
}

func TestFormEditWithoutChangesSendsCurrentValues(t *testing.T) {
	original := content.Event{
		ID:          "ev-3",
		Title:       "Seminar on Compilers",
		Description: "Guest lecture",
		EventType:   "Seminar",
		Status:      content.StatusUpcoming,
	}
	var gotID string
	var got *content.EventDraft
	repo := &mockRepository[content.Event, *content.EventDraft]{
		updateFunc: func(_ context.Context, id string, d *content.EventDraft) (content.Event, error) {
			gotID, got = id, d
			return original, nil
		},
	}
	f := newEventForm(repo, &formHooks{})

	require.NoError(t, f.StartEdit(original))
	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, "ev-3", gotID)
	want := content.EventDraftFrom(original)
	assert.Equal(t, &want, got)
}

func TestFormRejectsSecondSubmitInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	repo := &mockRepository[content.Event, *content.EventDraft]{
		createFunc: func(_ context.Context, d *content.EventDraft) (content.Event, error) {
			close(entered)
			<-release
			return content.Event{ID: "ev-1", Title: d.Title}, nil
		},
	}
	f := newEventForm(repo, &formHooks{})
	require.NoError(t, f.StartCreate())
	require.NoError(t, f.SetField("title", "t"))

	done := make(chan error)
	go func() { done <- f.Submit(context.Background()) }()
	<-entered

	assert.Equal(t, ModeSubmitting, f.Mode())
	assert.ErrorIs(t, f.Submit(context.Background()), ErrSubmitInFlight)
	assert.ErrorIs(t, f.SetField("title", "changed"), ErrSubmitInFlight)
	assert.ErrorIs(t, f.StartCreate(), ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"create"}, repo.Calls())
	assert.Equal(t, ModeClosed, f.Mode())
}

func TestFormCancelDuringSubmitStaysClosed(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	repo := &mockRepository[content.Event, *content.EventDraft]{
		createFunc: func(context.Context, *content.EventDraft) (content.Event, error) {
			close(entered)
			<-release
			return content.Event{}, errors.New("timeout")
		},
	}
	f := newEventForm(repo, &formHooks{})
	require.NoError(t, f.StartCreate())

	done := make(chan error)
	go func() { done <- f.Submit(context.Background()) }()
	<-entered
	f.Cancel()
	close(release)

	require.Error(t, <-done)
	assert.Equal(t, ModeClosed, f.Mode())
}
