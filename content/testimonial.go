package content

import (
	"time"

	"github.com/eringen/clubsite/remote"
)

const TestimonialsTable = "testimonials"

// Testimonial is visitor feedback. The admin panel only reads testimonials;
// approval happens out of band through Approver.
type Testimonial struct {
	ID        string
	Name      string
	Email     *string
	Position  *string
	Feedback  string
	Rating    *int
	Approved  bool
	CreatedAt time.Time
}

func (t Testimonial) RecordID() string { return t.ID }

// Stars returns the rating clamped to 0..5.
func (t Testimonial) Stars() int {
	if t.Rating == nil {
		return 0
	}
	return min(max(*t.Rating, 0), 5)
}

func testimonialFromRow(r remote.Row) (Testimonial, error) {
	return Testimonial{
		ID:        rowString(r, "id"),
		Name:      rowString(r, "name"),
		Email:     rowOptString(r, "email"),
		Position:  rowOptString(r, "position"),
		Feedback:  rowString(r, "feedback"),
		Rating:    rowOptInt(r, "rating"),
		Approved:  rowBool(r, "approved"),
		CreatedAt: rowTime(r, "created_at"),
	}, nil
}
