package clubsite

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/markdown"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterByCategory returns the posts in category, case-insensitively. An
// empty category returns every post.
func FilterByCategory(posts []content.BlogPost, category string) []content.BlogPost {
	category = strings.TrimSpace(category)
	if category == "" {
		return posts
	}
	var out []content.BlogPost
	for _, p := range posts {
		if p.Category != nil && strings.EqualFold(*p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// PostSummary returns the excerpt, or the start of the body when the post
// has none.
func PostSummary(p content.BlogPost) string {
	if p.Excerpt != nil && strings.TrimSpace(*p.Excerpt) != "" {
		return strings.TrimSpace(*p.Excerpt)
	}
	body := strings.Join(strings.Fields(p.Content), " ")
	const n = 160
	if r := []rune(body); len(r) > n {
		return string(r[:n]) + "…"
	}
	return body
}

func latest(events []content.Event) time.Time {
	var t time.Time
	for _, e := range events {
		if e.UpdatedAt.After(t) {
			t = e.UpdatedAt
		}
	}
	return t
}

// WebsiteJsonLD returns a JSON-LD string describing the club.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Organization",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Email != "" {
		data["email"] = cfg.Email
	}
	if cfg.School != "" {
		data["parentOrganization"] = map[string]string{
			"@type": "EducationalOrganization",
			"name":  cfg.School,
		}
	}
	return marshalJSONLD(data)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post content.BlogPost, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.ID)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   PostSummary(post),
		"datePublished": post.CreatedAt.Format(time.RFC3339),
		"dateModified":  post.UpdatedAt.Format(time.RFC3339),
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.Author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": post.Author}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": cfg.Name}
	}
	if img := safeImage(post.FeaturedImageURL); img != "" {
		data["image"] = img
	}
	if post.Category != nil {
		data["articleSection"] = *post.Category
	}
	return marshalJSONLD(data)
}

// EventJsonLD returns a JSON-LD string for an Event schema.
func EventJsonLD(e content.Event, cfg SiteConfig) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Event",
		"name":        e.Title,
		"description": e.Description,
		"eventStatus": eventStatusSchema(e.Status),
		"organizer": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
			"url":   BuildURL(cfg.URL),
		},
	}
	if e.EventDate != nil {
		data["startDate"] = e.EventDate.Format("2006-01-02")
	}
	if e.Venue != nil {
		data["location"] = map[string]string{"@type": "Place", "name": *e.Venue}
	}
	if img := safeImage(e.FeaturedImageURL); img != "" {
		data["image"] = img
	}
	if e.RegistrationLink != nil {
		data["offers"] = map[string]string{"@type": "Offer", "url": *e.RegistrationLink}
	}
	return marshalJSONLD(data)
}

func safeImage(u *string) string {
	if u == nil || markdown.SafeURL(*u) == "" {
		return ""
	}
	return strings.TrimSpace(*u)
}

func eventStatusSchema(status string) string {
	if status == content.StatusCancelled {
		return "https://schema.org/EventCancelled"
	}
	return "https://schema.org/EventScheduled"
}

func marshalJSONLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
