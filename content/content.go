// Package content holds the club's entities, the drafts that edit them, and
// the repositories that move them to and from the remote store.
package content

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/clubsite/remote"
)

var (
	ErrNotFound      = errors.New("content: record not found")
	ErrUnknownField  = errors.New("content: unknown form field")
	ErrInvalidNumber = errors.New("content: not a non-negative whole number")
	ErrInvalidDate   = errors.New("content: date must be YYYY-MM-DD")
)

// Record is anything stored under a server-assigned id.
type Record interface {
	RecordID() string
}

// Draft is the editable form state for one entity. Row is the only place
// where form field names are translated to column names.
type Draft interface {
	SetField(name, value string) error
	Row() (remote.Row, error)
}

// optionalText maps blank form input to a null column.
func optionalText(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// optionalCount parses a non-negative integer, or null when blank.
func optionalCount(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return int64(n), nil
}

// optionalDate validates a date-input value, or null when blank.
func optionalDate(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if _, err := time.Parse(remote.DateLayout, s); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return s, nil
}

// parseBool reads a checkbox or select value.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func dateInput(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(remote.DateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Row readers tolerate absent columns so partial selects decode.

func rowString(r remote.Row, col string) string {
	s, _ := r[col].(string)
	return s
}

func rowOptString(r remote.Row, col string) *string {
	s, ok := r[col].(string)
	if !ok {
		return nil
	}
	return &s
}

func rowBool(r remote.Row, col string) bool {
	b, _ := r[col].(bool)
	return b
}

func rowOptInt(r remote.Row, col string) *int {
	n, ok := r[col].(int64)
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

func rowTime(r remote.Row, col string) time.Time {
	t, _ := r[col].(time.Time)
	return t
}

func rowOptTime(r remote.Row, col string) *time.Time {
	t, ok := r[col].(time.Time)
	if !ok {
		return nil
	}
	return &t
}
