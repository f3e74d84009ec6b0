package clubsite

import (
	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/notify"
)

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// Page is embedded in every page model.
type Page struct {
	Site    SiteConfig
	Meta    PageMeta
	CSRF    string
	Flashes []notify.Message
	Admin   bool
}

// Member is one entry of the static club roster.
type Member struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	Expertise string `yaml:"expertise"`
	Image     string `yaml:"image"`
}

// DefaultMembers is the roster used when the configuration has none.
var DefaultMembers = []Member{
	{Name: "President", Role: "President", Expertise: "Full-Stack Development"},
	{Name: "Co-President", Role: "President", Expertise: "Pitching"},
	{Name: "Vice President", Role: "Vice President", Expertise: "Photography"},
	{Name: "Vice President", Role: "Vice President", Expertise: "Data Science"},
	{Name: "Senior Executive", Role: "Senior Executive", Expertise: "Videography"},
	{Name: "Senior Executive", Role: "Senior Executive", Expertise: "Cloud Computing"},
	{Name: "Executive", Role: "Executive", Expertise: "Mobile Development"},
	{Name: "Executive", Role: "Executive", Expertise: "UI/UX Design"},
}

// Image is an uploaded featured image under the uploads directory.
type Image struct {
	Filename   string
	URL        string
	Width      int
	Height     int
	Size       int64
	UploadedAt string
}

type HomePage struct {
	Page
	Upcoming     []content.Event
	Posts        []content.BlogPost
	Testimonials []content.Testimonial
	MemberCount  int
}

// EventsPage lists events. Loaded is false when no fetch has ever
// succeeded, so an empty list can be told apart from a failed one.
type EventsPage struct {
	Page
	Upcoming []content.Event
	Past     []content.Event
	Loaded   bool
}

type BlogPage struct {
	Page
	Posts    []content.BlogPost
	Category string
	Loaded   bool
}

type PostPage struct {
	Page
	Post content.BlogPost
}

type MembersPage struct {
	Page
	Members []Member
}

type FeedbacksPage struct {
	Page
	Testimonials []content.Testimonial
	Loaded       bool
}

// ContactForm is the public contact form.
type ContactForm struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email"`
	Subject string `form:"subject" validate:"max=200"`
	Message string `form:"message" validate:"required,max=5000"`
}

type ContactPage struct {
	Page
	Form   ContactForm
	Errors map[string]string
}

type LoginPage struct {
	Page
	Email string
	Error string
}

// SectionView is a render snapshot of one managed admin section.
type SectionView[E any, D any] struct {
	Items     []E
	Loading   bool
	Loaded    bool
	Mode      admin.Mode
	Draft     D
	EditingID string
}

// Open reports whether the form is shown.
func (s SectionView[E, D]) Open() bool { return s.Mode != admin.ModeClosed }

type DashboardPage struct {
	Page
	Stats        admin.Stats
	Expanded     admin.SectionID
	Events       SectionView[content.Event, content.EventDraft]
	Blogs        SectionView[content.BlogPost, content.BlogDraft]
	Testimonials []content.Testimonial
	Members      []Member
	EventTypes   []string
	Statuses     []string
	Categories   []string
}

type ConfirmPage struct {
	Page
	Section admin.SectionID
	ID      string
	Title   string
}

type ImagesPage struct {
	Page
	Images []Image
}
