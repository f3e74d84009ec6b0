package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/clubsite/remote"
)

const EventsTable = "events"

// Event types offered by the admin form. The column itself is free text.
var EventTypes = []string{"Intra", "Inter", "Workshop", "Seminar", "Hackathon"}

// Event statuses.
const (
	StatusUpcoming  = "upcoming"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var EventStatuses = []string{StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled}

// Event is a club competition, workshop or talk.
type Event struct {
	ID                   string
	Title                string
	Description          string
	EventType            string
	EventDate            *time.Time
	Venue                *string
	MaxParticipants      *int
	CurrentParticipants  int
	FeaturedImageURL     *string
	RegistrationLink     *string
	BrochureLink         *string
	RegistrationDeadline *time.Time
	ResultsURL           *string
	Winners              json.RawMessage
	Status               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (e Event) RecordID() string { return e.ID }

// SpotsLeft returns the remaining capacity, or -1 when uncapped.
func (e Event) SpotsLeft() int {
	if e.MaxParticipants == nil {
		return -1
	}
	left := *e.MaxParticipants - e.CurrentParticipants
	if left < 0 {
		return 0
	}
	return left
}

// winner is one entry of the winners column when it holds objects.
type winner struct {
	Name     string `json:"name"`
	Team     string `json:"team"`
	Position any    `json:"position"`
}

// WinnerNames lists the recorded winners for display. The column holds a
// JSON array of names or of {name|team, position} objects; anything else
// yields nil.
func (e Event) WinnerNames() []string {
	if len(e.Winners) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(e.Winners, &names); err == nil {
		return names
	}
	var ws []winner
	if err := json.Unmarshal(e.Winners, &ws); err != nil {
		return nil
	}
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		name := w.Name
		if name == "" {
			name = w.Team
		}
		if name == "" {
			continue
		}
		if w.Position != nil {
			name = fmt.Sprintf("%v. %s", w.Position, name)
		}
		out = append(out, name)
	}
	return out
}

func eventFromRow(r remote.Row) (Event, error) {
	e := Event{
		ID:                   rowString(r, "id"),
		Title:                rowString(r, "title"),
		Description:          rowString(r, "description"),
		EventType:            rowString(r, "event_type"),
		EventDate:            rowOptTime(r, "event_date"),
		Venue:                rowOptString(r, "venue"),
		MaxParticipants:      rowOptInt(r, "max_participants"),
		FeaturedImageURL:     rowOptString(r, "featured_image_url"),
		RegistrationLink:     rowOptString(r, "registration_link"),
		BrochureLink:         rowOptString(r, "brochure_link"),
		RegistrationDeadline: rowOptTime(r, "registration_deadline"),
		ResultsURL:           rowOptString(r, "results_url"),
		Status:               rowString(r, "status"),
		CreatedAt:            rowTime(r, "created_at"),
		UpdatedAt:            rowTime(r, "updated_at"),
	}
	if n := rowOptInt(r, "current_participants"); n != nil {
		e.CurrentParticipants = *n
	}
	if w, ok := r["winners"].([]byte); ok {
		e.Winners = json.RawMessage(w)
	}
	if e.Status == "" {
		e.Status = StatusUpcoming
	}
	return e, nil
}

// EventDraft is the admin form for an event. Field names match the form
// inputs.
type EventDraft struct {
	Title            string
	Description      string
	EventDate        string
	Venue            string
	EventType        string
	MaxParticipants  string
	ImageURL         string
	RegistrationLink string
	BrochureLink     string
	Status           string
}

// NewEventDraft returns the defaults of a fresh create form.
func NewEventDraft() EventDraft {
	return EventDraft{Status: StatusUpcoming}
}

// EventDraftFrom hydrates an edit form from e.
func EventDraftFrom(e Event) EventDraft {
	d := EventDraft{
		Title:            e.Title,
		Description:      e.Description,
		EventDate:        dateInput(e.EventDate),
		Venue:            deref(e.Venue),
		EventType:        e.EventType,
		ImageURL:         deref(e.FeaturedImageURL),
		RegistrationLink: deref(e.RegistrationLink),
		BrochureLink:     deref(e.BrochureLink),
		Status:           e.Status,
	}
	if e.MaxParticipants != nil {
		d.MaxParticipants = strconv.Itoa(*e.MaxParticipants)
	}
	if d.Status == "" {
		d.Status = StatusUpcoming
	}
	return d
}

func (d *EventDraft) SetField(name, value string) error {
	switch name {
	case "title":
		d.Title = value
	case "description":
		d.Description = value
	case "eventDate":
		d.EventDate = value
	case "venue":
		d.Venue = value
	case "eventType":
		d.EventType = value
	case "maxParticipants":
		d.MaxParticipants = value
	case "imageUrl":
		d.ImageURL = value
	case "registrationLink":
		d.RegistrationLink = value
	case "brochureLink":
		d.BrochureLink = value
	case "status":
		d.Status = value
	default:
		return ErrUnknownField
	}
	return nil
}

// Row maps the draft to event columns. current_participants is not part
// of the form; the repository sets it on create only.
func (d *EventDraft) Row() (remote.Row, error) {
	date, err := optionalDate(d.EventDate)
	if err != nil {
		return nil, err
	}
	maxP, err := optionalCount(d.MaxParticipants)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(d.Status)
	if status == "" {
		status = StatusUpcoming
	}
	return remote.Row{
		"title":              d.Title,
		"description":        d.Description,
		"event_date":         date,
		"venue":              optionalText(d.Venue),
		"event_type":         d.EventType,
		"max_participants":   maxP,
		"featured_image_url": optionalText(d.ImageURL),
		"registration_link":  optionalText(d.RegistrationLink),
		"brochure_link":      optionalText(d.BrochureLink),
		"status":             status,
	}, nil
}
