package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/clubsite"
	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/notify"
)

var cfg = clubsite.SiteConfig{Name: "Code Club", URL: "https://club.example", Locale: "en", School: "Hill School"}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func strp(s string) *string { return &s }

func TestHomeListsContent(t *testing.T) {
	v := New(cfg)
	date := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	out := render(t, v.Home(clubsite.HomePage{
		Page:         clubsite.Page{Site: cfg, Flashes: []notify.Message{{Level: "success", Text: "Saved"}}},
		Upcoming:     []content.Event{{ID: "e1", Title: "WarP", EventType: "Intra", EventDate: &date, Venue: strp("Lab 2")}},
		Posts:        []content.BlogPost{{ID: "p1", Title: "Hello", Content: "First post body"}},
		Testimonials: []content.Testimonial{{Name: "Ana", Feedback: "Great club"}},
		MemberCount:  8,
	}))
	assert.Contains(t, out, "WarP")
	assert.Contains(t, out, "Lab 2")
	assert.Contains(t, out, "Tue, 3 Nov 2026")
	assert.Contains(t, out, `href="/blog/p1/"`)
	assert.Contains(t, out, "Great club")
	assert.Contains(t, out, `class="flash success"`)
	assert.Contains(t, out, "8 core members")
}

func TestEventsNotLoadedShowsError(t *testing.T) {
	out := render(t, New(cfg).Events(clubsite.EventsPage{Page: clubsite.Page{Site: cfg}}))
	assert.Contains(t, out, "could not be loaded")
}

func TestPastEventsListWinners(t *testing.T) {
	out := render(t, New(cfg).Events(clubsite.EventsPage{
		Page:   clubsite.Page{Site: cfg},
		Loaded: true,
		Past: []content.Event{{
			ID: "e1", Title: "WarP", EventType: "Hackathon", Status: content.StatusCompleted,
			Winners: []byte(`[{"team":"Null Pointers","position":1}]`),
		}},
	}))
	assert.Contains(t, out, "<li>1. Null Pointers</li>")
}

func TestPostRendersMarkdownAndDropsUnsafeURLs(t *testing.T) {
	out := render(t, New(cfg).Post(clubsite.PostPage{
		Page: clubsite.Page{Site: cfg},
		Post: content.BlogPost{
			ID:               "p1",
			Title:            "Markdown",
			Content:          "**bold** text",
			FeaturedImageURL: strp("javascript:alert(1)"),
			InstagramPostURL: strp("https://instagram.com/p/abc"),
		},
	}))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "https://instagram.com/p/abc")
	assert.Contains(t, out, `"@type":"BlogPosting"`)
}

func TestDashboardShowsOpenEventForm(t *testing.T) {
	out := render(t, New(cfg).AdminDashboard(clubsite.DashboardPage{
		Page:     clubsite.Page{Site: cfg, CSRF: "tok"},
		Stats:    admin.Stats{TotalMembers: 8, TotalEvents: 2},
		Expanded: admin.SectionEvents,
		Events: clubsite.SectionView[content.Event, content.EventDraft]{
			Mode:   admin.ModeEdit,
			Loaded: true,
			Draft:  content.EventDraft{Title: "WarP", EventType: "Inter", Status: content.StatusUpcoming},
			Items:  []content.Event{{ID: "e1", Title: "WarP"}},
		},
		EventTypes: content.EventTypes,
		Statuses:   content.EventStatuses,
		Categories: content.BlogCategories,
	}))
	assert.Contains(t, out, "Edit event")
	assert.Contains(t, out, `value="WarP"`)
	assert.Contains(t, out, `<option value="Inter" selected>`)
	assert.Contains(t, out, `action="/admin/events/edit/e1/"`)
	assert.Contains(t, out, `name="_csrf" value="tok"`)
	assert.NotContains(t, out, "New post")
}

func TestDashboardKeepsUnlistedEventType(t *testing.T) {
	out := render(t, New(cfg).AdminDashboard(clubsite.DashboardPage{
		Page:     clubsite.Page{Site: cfg, CSRF: "tok"},
		Expanded: admin.SectionEvents,
		Events: clubsite.SectionView[content.Event, content.EventDraft]{
			Mode:      admin.ModeEdit,
			Loaded:    true,
			EditingID: "e1",
			Draft:     content.EventDraft{Title: "Bots", EventType: "Robotics", Status: "postponed"},
			Items:     []content.Event{{ID: "e1", Title: "Bots"}},
		},
		EventTypes: content.EventTypes,
		Statuses:   content.EventStatuses,
	}))
	assert.Contains(t, out, `<option value="Robotics" selected>`)
	assert.Contains(t, out, `<option value="postponed" selected>`)
	assert.NotContains(t, out, `<option value="Intra" selected>`)
	assert.Contains(t, out, `name="id" value="e1"`)
	assert.Len(t, content.EventTypes, 5)
}

func TestDashboardCollapsed(t *testing.T) {
	out := render(t, New(cfg).AdminDashboard(clubsite.DashboardPage{Page: clubsite.Page{Site: cfg}}))
	assert.NotContains(t, out, `id="events"`)
	assert.Contains(t, out, `action="/admin/section/blogs/"`)
}

func TestErrorPages(t *testing.T) {
	v := New(cfg)
	assert.Contains(t, render(t, v.NotFound()), "Page not found")
	assert.Contains(t, render(t, v.ServerError()), "Something went wrong")
}
