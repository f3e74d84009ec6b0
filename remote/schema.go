package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBool
	KindTimestamp
	KindDate
	KindJSON
)

// DateLayout is the wire format of date columns.
const DateLayout = "2006-01-02"

// Column describes one table column. Generated columns are filled by the
// store and ignored when a client supplies them.
type Column struct {
	Name      string
	Kind      Kind
	Required  bool
	Generated bool
}

// Table is the declared shape of one table.
type Table struct {
	Name    string
	Columns []Column
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Schema maps table names to their declarations.
type Schema map[string]Table

// Table returns the named table or ErrUnknownTable.
func (s Schema) Table(name string) (Table, error) {
	t, ok := s[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

var validate = validator.New()

// checkRequired rejects a row that leaves a required column empty. When
// partial is set only the columns present in row are checked.
func (t Table) checkRequired(row Row, partial bool) error {
	for _, c := range t.Columns {
		if !c.Required || c.Generated {
			continue
		}
		v, ok := row[c.Name]
		if !ok && partial {
			continue
		}
		if v == nil {
			return fmt.Errorf("%w: %s.%s", ErrRequired, t.Name, c.Name)
		}
		if s, isString := v.(string); isString {
			v = strings.TrimSpace(s)
		}
		if err := validate.Var(v, "required"); err != nil {
			return fmt.Errorf("%w: %s.%s", ErrRequired, t.Name, c.Name)
		}
	}
	return nil
}

// checkColumns rejects names that the table does not declare.
func (t Table) checkColumns(names []string) error {
	for _, n := range names {
		if n == "*" {
			continue
		}
		if _, ok := t.Column(n); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, n)
		}
	}
	return nil
}

// normalize converts a driver value to the canonical Row value for kind.
func normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindText:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case [16]byte:
			return uuid.UUID(x).String(), nil
		}
	case KindInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int32:
			return int64(x), nil
		case int:
			return int64(x), nil
		case float64:
			return int64(x), nil
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case KindTimestamp, KindDate:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			return parseTime(x)
		case []byte:
			return parseTime(string(x))
		}
	case KindJSON:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		default:
			return json.Marshal(x)
		}
	}
	return nil, fmt.Errorf("%w: %T for kind %d", ErrInvalidValue, v, kind)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	DateLayout,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidValue, s)
}

// coerce converts a client value to the canonical type for kind so both
// dialects receive the same input. Strings are accepted for dates and
// timestamps.
func coerce(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindTimestamp, KindDate:
		if s, ok := v.(string); ok {
			return parseTime(s)
		}
	case KindInt:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		}
	}
	return normalize(kind, v)
}

// DefaultSchema declares the club tables.
var DefaultSchema = Schema{
	"events": {Name: "events", Columns: []Column{
		{Name: "id", Kind: KindText, Generated: true},
		{Name: "title", Kind: KindText, Required: true},
		{Name: "description", Kind: KindText, Required: true},
		{Name: "event_type", Kind: KindText, Required: true},
		{Name: "event_date", Kind: KindDate},
		{Name: "venue", Kind: KindText},
		{Name: "max_participants", Kind: KindInt},
		{Name: "current_participants", Kind: KindInt},
		{Name: "featured_image_url", Kind: KindText},
		{Name: "registration_link", Kind: KindText},
		{Name: "brochure_link", Kind: KindText},
		{Name: "registration_deadline", Kind: KindTimestamp},
		{Name: "results_url", Kind: KindText},
		{Name: "winners", Kind: KindJSON},
		{Name: "status", Kind: KindText},
		{Name: "created_at", Kind: KindTimestamp, Generated: true},
		{Name: "updated_at", Kind: KindTimestamp, Generated: true},
	}},
	"blog_posts": {Name: "blog_posts", Columns: []Column{
		{Name: "id", Kind: KindText, Generated: true},
		{Name: "title", Kind: KindText, Required: true},
		{Name: "excerpt", Kind: KindText},
		{Name: "content", Kind: KindText, Required: true},
		{Name: "author", Kind: KindText, Required: true},
		{Name: "category", Kind: KindText},
		{Name: "published", Kind: KindBool},
		{Name: "featured_image_url", Kind: KindText},
		{Name: "instagram_post_url", Kind: KindText},
		{Name: "created_at", Kind: KindTimestamp, Generated: true},
		{Name: "updated_at", Kind: KindTimestamp, Generated: true},
	}},
	"testimonials": {Name: "testimonials", Columns: []Column{
		{Name: "id", Kind: KindText, Generated: true},
		{Name: "name", Kind: KindText, Required: true},
		{Name: "email", Kind: KindText},
		{Name: "position", Kind: KindText},
		{Name: "feedback", Kind: KindText, Required: true},
		{Name: "rating", Kind: KindInt},
		{Name: "approved", Kind: KindBool},
		{Name: "created_at", Kind: KindTimestamp, Generated: true},
	}},
	"profiles": {Name: "profiles", Columns: []Column{
		{Name: "id", Kind: KindText, Generated: true},
		{Name: "email", Kind: KindText, Required: true},
		{Name: "role", Kind: KindText},
		{Name: "created_at", Kind: KindTimestamp, Generated: true},
		{Name: "updated_at", Kind: KindTimestamp, Generated: true},
	}},
}
