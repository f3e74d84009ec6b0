package clubsite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/notify"
	"github.com/eringen/clubsite/remote"
)

const testCSRF = "test-csrf-token"

func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func flashText(msgs []notify.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Level+":"+m.Text)
	}
	return strings.Join(parts, "|")
}

// stubViews renders each page as a one-line summary the tests match on.
func stubViews() ViewFuncs {
	return ViewFuncs{
		Home: func(p HomePage) templ.Component {
			return text(fmt.Sprintf("home upcoming=%d posts=%d testimonials=%d members=%d", len(p.Upcoming), len(p.Posts), len(p.Testimonials), p.MemberCount))
		},
		Events: func(p EventsPage) templ.Component {
			return text(fmt.Sprintf("events upcoming=%d past=%d loaded=%t", len(p.Upcoming), len(p.Past), p.Loaded))
		},
		Blog: func(p BlogPage) templ.Component {
			titles := make([]string, 0, len(p.Posts))
			for _, post := range p.Posts {
				titles = append(titles, post.Title)
			}
			return text("blog " + strings.Join(titles, ","))
		},
		Post:    func(p PostPage) templ.Component { return text("post " + p.Post.Title + " og=" + p.Meta.OGType) },
		Members: func(p MembersPage) templ.Component { return text(fmt.Sprintf("members %d", len(p.Members))) },
		Feedbacks: func(p FeedbacksPage) templ.Component {
			return text(fmt.Sprintf("feedbacks %d", len(p.Testimonials)))
		},
		Contact: func(p ContactPage) templ.Component {
			return text(fmt.Sprintf("contact errors=%d flashes=%s", len(p.Errors), flashText(p.Flashes)))
		},
		AdminLogin: func(p LoginPage) templ.Component { return text("login flashes=" + flashText(p.Flashes)) },
		AdminDashboard: func(p DashboardPage) templ.Component {
			titles := make([]string, 0, len(p.Events.Items))
			for _, e := range p.Events.Items {
				titles = append(titles, e.Title)
			}
			return text(fmt.Sprintf("dashboard events=%d posts=%d testimonials=%d members=%d expanded=%s eventmode=%s items=%s flashes=%s",
				p.Stats.TotalEvents, p.Stats.TotalBlogPosts, p.Stats.TotalTestimonials, p.Stats.TotalMembers,
				p.Expanded, p.Events.Mode, strings.Join(titles, ","), flashText(p.Flashes)))
		},
		AdminConfirm: func(p ConfirmPage) templ.Component { return text("confirm " + p.Title) },
		AdminImages:  func(p ImagesPage) templ.Component { return text(fmt.Sprintf("images %d", len(p.Images))) },
		NotFound:     func() templ.Component { return text("not found") },
		ServerError:  func() templ.Component { return text("server error") },
	}
}

func newTestApp(t *testing.T, mutate ...func(*SiteConfig)) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "club.db")
	require.NoError(t, remote.Migrate(path, zap.NewNop()))
	backend, err := remote.OpenSQLite(path, remote.DefaultSchema)
	require.NoError(t, err)

	cfg := SiteConfig{
		Name:          "Code Club",
		URL:           "https://club.example",
		AdminPassword: "secret",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		StaticDir:     t.TempDir(),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	app := New(cfg, stubViews(),
		WithBackend(backend),
		WithLogger(zap.NewNop()),
		WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { app.Close() })
	return app
}

// browser keeps cookies between requests.
type browser struct {
	t   *testing.T
	app *App
	jar map[string]*http.Cookie
}

func newBrowser(t *testing.T, app *App) *browser {
	return &browser{t: t, app: app, jar: map[string]*http.Cookie{
		"_csrf": {Name: "_csrf", Value: testCSRF},
	}}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, "application/x-www-form-urlencoded")
	}
	req.Header.Set("X-CSRF-Token", testCSRF)
	for _, c := range b.jar {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, target, form)
}

func (b *browser) login() {
	b.t.Helper()
	rec := b.post("/admin/login/", url.Values{"password": {"secret"}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func seedEvent(t *testing.T, app *App, title, status string) content.Event {
	t.Helper()
	d := content.NewEventDraft()
	d.Title, d.Description, d.EventType, d.Status = title, "about "+title, "Workshop", status
	d.EventDate = "2026-12-01"
	e, err := app.Events.Create(context.Background(), &d)
	require.NoError(t, err)
	return e
}

func seedPost(t *testing.T, app *App, title string, published bool) content.BlogPost {
	t.Helper()
	d := content.NewBlogDraft()
	d.Title, d.Content, d.Author, d.Published, d.Category = title, "Body of "+title, "Ada", published, "tech"
	p, err := app.Blogs.Create(context.Background(), &d)
	require.NoError(t, err)
	return p
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	seedEvent(t, app, "WarP", content.StatusUpcoming)
	seedEvent(t, app, "Old Jam", content.StatusCompleted)
	post := seedPost(t, app, "Hello", true)
	seedPost(t, app, "Draft", false)
	for _, row := range []remote.Row{
		{"name": "Ana", "feedback": "Great", "approved": true},
		{"name": "Bo", "feedback": "Meh", "approved": false},
	} {
		_, err := app.Client.From(content.TestimonialsTable).Insert(row).Exec(context.Background())
		require.NoError(t, err)
	}

	b := newBrowser(t, app)

	rec := b.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home upcoming=1 posts=1 testimonials=1 members=8", rec.Body.String())

	assert.Equal(t, "events upcoming=1 past=1 loaded=true", b.get("/events/").Body.String())
	assert.Equal(t, "blog Hello", b.get("/blog/").Body.String())
	assert.Equal(t, "blog Hello", b.get("/blog/?category=TECH").Body.String())
	assert.Equal(t, "blog ", b.get("/blog/?category=social").Body.String())
	assert.Equal(t, "post Hello og=article", b.get("/blog/"+post.ID+"/").Body.String())
	assert.Equal(t, "members 8", b.get("/members/").Body.String())
	assert.Equal(t, "feedbacks 1", b.get("/feedbacks/").Body.String())
}

func TestPostNotFound(t *testing.T) {
	app := newTestApp(t)
	draft := seedPost(t, app, "Hidden", false)
	b := newBrowser(t, app)

	for _, path := range []string{"/blog/not-a-uuid/", "/blog/" + draft.ID + "/", "/nope/"} {
		rec := b.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not found", rec.Body.String(), path)
	}
}

func TestFeedSitemapRobots(t *testing.T) {
	app := newTestApp(t)
	post := seedPost(t, app, "Feed me", true)
	b := newBrowser(t, app)

	feed := b.get("/feed.xml")
	assert.Equal(t, http.StatusOK, feed.Code)
	assert.Contains(t, feed.Body.String(), "<title>Feed me</title>")
	assert.Contains(t, feed.Body.String(), "https://club.example/blog/"+post.ID+"/")

	sitemap := b.get("/sitemap.xml")
	assert.Contains(t, sitemap.Body.String(), "https://club.example/events/")
	assert.Contains(t, sitemap.Body.String(), "https://club.example/blog/"+post.ID+"/")

	robots := b.get("/robots.txt")
	assert.Contains(t, robots.Body.String(), "Disallow: /admin/")
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)

	rec := b.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	metrics := b.get("/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "clubsite_remote_requests_total")
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)

	rec := b.post("/admin/events/new/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))

	assert.Equal(t, "login flashes=", b.get("/admin/").Body.String())
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader("password=secret"))
	req.Header.Set(echo.HeaderContentType, "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginFailuresAreLimited(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.LoginAttempts = 2 })
	b := newBrowser(t, app)

	for range 2 {
		rec := b.post("/admin/login/", url.Values{"password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "login flashes=error:Invalid credentials.", rec.Body.String())
	}
	rec := b.post("/admin/login/", url.Values{"password": {"secret"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginRequiresAdminRoleWhenProfileExists(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.Profiles.Upsert(ctx, "kid@school.example", content.RoleUser))
	require.NoError(t, app.Profiles.Upsert(ctx, "Advisor@school.example", content.RoleAdmin))
	b := newBrowser(t, app)

	rec := b.post("/admin/login/", url.Values{"email": {"kid@school.example"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = b.post("/admin/login/", url.Values{"email": {"advisor@school.example"}, "password": {"secret"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(b.get("/admin/").Body.String(), "dashboard"))
}

func TestAdminCreateEvent(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	assert.Equal(t, "events upcoming=0 past=0 loaded=true", b.get("/events/").Body.String())

	b.login()
	assert.Equal(t, http.StatusSeeOther, b.post("/admin/section/events/", nil).Code)
	assert.Equal(t, http.StatusSeeOther, b.post("/admin/events/new/", nil).Code)
	assert.Contains(t, b.get("/admin/").Body.String(), "expanded=events eventmode=create")

	rec := b.post("/admin/events/save/", url.Values{
		"title":           {"WarP"},
		"description":     {"24h hackathon"},
		"eventType":       {"Hackathon"},
		"eventDate":       {"2026-12-05"},
		"maxParticipants": {"100"},
		"status":          {content.StatusUpcoming},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/#events", rec.Header().Get("Location"))

	dash := b.get("/admin/").Body.String()
	assert.Contains(t, dash, "dashboard events=1 posts=0 testimonials=0 members=8")
	assert.Contains(t, dash, "eventmode=closed items=WarP")
	assert.Contains(t, dash, `success:Event "WarP" created.`)

	// The flash is shown once.
	assert.NotContains(t, b.get("/admin/").Body.String(), "created")

	assert.Equal(t, "events upcoming=1 past=0 loaded=true", b.get("/events/").Body.String())
}

func TestAdminSaveFailureKeepsForm(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login()
	b.post("/admin/events/new/", nil)

	b.post("/admin/events/save/", url.Values{
		"title":           {"Bad"},
		"description":     {"x"},
		"eventType":       {"Intra"},
		"maxParticipants": {"lots"},
	})
	dash := b.get("/admin/").Body.String()
	assert.Contains(t, dash, "events=0")
	assert.Contains(t, dash, "eventmode=create")
	assert.Contains(t, dash, "error:Could not save the event")

	count, err := app.Events.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

// evictPanels drops every admin panel, as idle eviction or a restart would.
func evictPanels(app *App) {
	app.panels.mu.Lock()
	clear(app.panels.entries)
	app.panels.mu.Unlock()
}

func TestAdminSaveAfterPanelEviction(t *testing.T) {
	app := newTestApp(t)
	quiz := seedEvent(t, app, "Quiz", content.StatusUpcoming)
	b := newBrowser(t, app)
	b.login()

	b.post("/admin/events/new/", nil)
	evictPanels(app)
	rec := b.post("/admin/events/save/", url.Values{
		"id":          {""},
		"title":       {"WarP"},
		"description": {"24h hackathon"},
		"eventType":   {"Hackathon"},
		"status":      {content.StatusUpcoming},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	dash := b.get("/admin/").Body.String()
	assert.Contains(t, dash, "events=2")
	assert.Contains(t, dash, `success:Event "WarP" created.`)

	b.post("/admin/events/edit/"+quiz.ID+"/", nil)
	evictPanels(app)
	b.post("/admin/events/save/", url.Values{
		"id":          {quiz.ID},
		"title":       {"Quiz Night"},
		"description": {"about Quiz"},
		"eventType":   {"Workshop"},
		"eventDate":   {"2026-12-01"},
		"status":      {content.StatusUpcoming},
	})
	dash = b.get("/admin/").Body.String()
	assert.Contains(t, dash, "events=2")
	assert.Contains(t, dash, `success:Event "Quiz Night" updated.`)
	got, err := app.Events.Get(context.Background(), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiz Night", got.Title)

	require.NoError(t, app.Events.Delete(context.Background(), quiz.ID))
	evictPanels(app)
	b.post("/admin/events/save/", url.Values{"id": {quiz.ID}, "title": {"Gone"}})
	dash = b.get("/admin/").Body.String()
	assert.Contains(t, dash, "error:That record no longer exists, so nothing was saved.")
	count, err := app.Events.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdminEditAndCancel(t *testing.T) {
	app := newTestApp(t)
	e := seedEvent(t, app, "Quiz", content.StatusUpcoming)
	b := newBrowser(t, app)
	b.login()

	b.post("/admin/events/edit/"+e.ID+"/", nil)
	assert.Contains(t, b.get("/admin/").Body.String(), "eventmode=edit")

	b.post("/admin/events/cancel/", nil)
	assert.Contains(t, b.get("/admin/").Body.String(), "eventmode=closed")

	assert.Equal(t, http.StatusNotFound, b.post("/admin/events/edit/missing/", nil).Code)
	assert.Equal(t, http.StatusNotFound, b.post("/admin/widgets/new/", nil).Code)
}

func TestAdminDeleteNeedsConfirmation(t *testing.T) {
	app := newTestApp(t)
	e := seedEvent(t, app, "Quiz", content.StatusUpcoming)
	b := newBrowser(t, app)
	b.login()

	assert.Equal(t, "confirm Quiz", b.get("/admin/events/delete/"+e.ID+"/").Body.String())

	b.post("/admin/events/delete/"+e.ID+"/", url.Values{"confirm": {"no"}})
	dash := b.get("/admin/").Body.String()
	assert.Contains(t, dash, "events=1")
	assert.Contains(t, dash, "info:Nothing was deleted.")

	b.post("/admin/events/delete/"+e.ID+"/", url.Values{"confirm": {"yes"}})
	dash = b.get("/admin/").Body.String()
	assert.Contains(t, dash, "events=0")
	assert.Contains(t, dash, `success:Event "Quiz" deleted.`)

	_, err := app.Events.Get(context.Background(), e.ID)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestLogoutDropsPanel(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login()
	b.get("/admin/")
	require.Equal(t, 1, app.panels.len())

	assert.Equal(t, http.StatusSeeOther, b.post("/admin/logout/", nil).Code)
	assert.Zero(t, app.panels.len())
	assert.Equal(t, "login flashes=", b.get("/admin/").Body.String())
}

func TestContactForm(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.ContactMessages = 2 })
	b := newBrowser(t, app)

	rec := b.post("/contact/", url.Values{"name": {"Ana"}, "email": {"not-an-email"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "contact errors=2 flashes=error:Please fill in your name, a valid email and a message.", rec.Body.String())

	rec = b.post("/contact/", url.Values{"name": {"Ana"}, "email": {"ana@example.com"}, "message": {"Hi!"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, b.get("/contact/").Body.String(), "success:Thanks Ana")

	rec = b.post("/contact/", url.Values{"name": {"Ana"}, "email": {"ana@example.com"}, "message": {"Again"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many messages")
}

func TestPublicCacheServesStaleOnError(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.PublicCacheTTL = time.Nanosecond })
	seedEvent(t, app, "WarP", content.StatusUpcoming)
	b := newBrowser(t, app)
	assert.Equal(t, "events upcoming=1 past=0 loaded=true", b.get("/events/").Body.String())

	require.NoError(t, app.Client.Close())
	assert.Equal(t, "events upcoming=1 past=0 loaded=true", b.get("/events/").Body.String())
}
