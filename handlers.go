package clubsite

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/clubsite/notify"
)

// homeListSize caps each list on the landing page.
const homeListSize = 3

func (a *App) page(c echo.Context, meta PageMeta) Page {
	if meta.Title == "" {
		meta.Title = a.Config.Name
	}
	if meta.Description == "" {
		meta.Description = a.Config.Description
	}
	if meta.URL == "" {
		meta.URL = BuildURL(a.Config.URL, strings.Trim(c.Request().URL.Path, "/"))
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	return Page{
		Site:    a.Config,
		Meta:    meta,
		CSRF:    CsrfToken(c),
		Flashes: popFlashes(c),
		Admin:   IsAdmin(c),
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	upcoming, _ := a.Public.UpcomingEvents(ctx)
	posts, _ := a.Public.PublishedPosts(ctx)
	testimonials, _ := a.Public.ApprovedTestimonials(ctx)
	return Render(c, a.Views.Home(HomePage{
		Page:         a.page(c, PageMeta{}),
		Upcoming:     head(upcoming, homeListSize),
		Posts:        head(posts, homeListSize),
		Testimonials: head(testimonials, homeListSize),
		MemberCount:  len(a.Config.Members),
	}))
}

func (a *App) handleEvents(c echo.Context) error {
	ctx := c.Request().Context()
	upcoming, upLoaded := a.Public.UpcomingEvents(ctx)
	past, pastLoaded := a.Public.PastEvents(ctx)
	return Render(c, a.Views.Events(EventsPage{
		Page:     a.page(c, PageMeta{Title: "Events | " + a.Config.Name}),
		Upcoming: upcoming,
		Past:     past,
		Loaded:   upLoaded || pastLoaded,
	}))
}

func (a *App) handleBlog(c echo.Context) error {
	category := strings.TrimSpace(c.QueryParam("category"))
	posts, loaded := a.Public.PublishedPosts(c.Request().Context())
	return Render(c, a.Views.Blog(BlogPage{
		Page:     a.page(c, PageMeta{Title: "Blog | " + a.Config.Name}),
		Posts:    FilterByCategory(posts, category),
		Category: category,
		Loaded:   loaded,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return a.notFound(c)
	}
	post, err := a.Public.Post(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a.notFound(c)
		}
		return err
	}
	meta := PageMeta{
		Title:       post.Title + " | " + a.Config.Name,
		Description: PostSummary(post),
		URL:         BuildURL(a.Config.URL, "blog", post.ID),
		OGType:      "article",
	}
	meta.Image = safeImage(post.FeaturedImageURL)
	return Render(c, a.Views.Post(PostPage{Page: a.page(c, meta), Post: post}))
}

func (a *App) handleMembers(c echo.Context) error {
	return Render(c, a.Views.Members(MembersPage{
		Page:    a.page(c, PageMeta{Title: "Members | " + a.Config.Name}),
		Members: a.Config.Members,
	}))
}

func (a *App) handleFeedbacks(c echo.Context) error {
	testimonials, loaded := a.Public.ApprovedTestimonials(c.Request().Context())
	return Render(c, a.Views.Feedbacks(FeedbacksPage{
		Page:         a.page(c, PageMeta{Title: "Feedback | " + a.Config.Name}),
		Testimonials: testimonials,
		Loaded:       loaded,
	}))
}

func (a *App) handleContact(c echo.Context) error {
	return a.renderContact(c, http.StatusOK, ContactForm{}, nil)
}

func (a *App) handleContactSubmit(c echo.Context) error {
	var form ContactForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Subject = strings.TrimSpace(form.Subject)
	form.Message = strings.TrimSpace(form.Message)

	if err := a.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		errs := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			errs[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return a.renderContact(c, http.StatusUnprocessableEntity, form, errs,
			a.message("error", "contact.invalid", nil))
	}

	a.Logger.Named("contact").Info("contact message",
		zap.String("name", form.Name),
		zap.String("email", form.Email),
		zap.String("subject", form.Subject),
		zap.Int("length", len(form.Message)),
	)
	if err := addFlash(c, a.message("success", "contact.sent", map[string]any{"Name": form.Name})); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/contact/")
}

func (a *App) renderContact(c echo.Context, status int, form ContactForm, errs map[string]string, msgs ...notify.Message) error {
	p := a.page(c, PageMeta{Title: "Contact | " + a.Config.Name})
	p.Flashes = append(p.Flashes, msgs...)
	return RenderStatus(c, status, a.Views.Contact(ContactPage{Page: p, Form: form, Errors: errs}))
}

func (a *App) message(level, key string, data map[string]any) notify.Message {
	return notify.Message{Level: level, Text: a.Translator.T(a.Config.Locale, key, data)}
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, _ := a.Public.PublishedPosts(ctx)
	upcoming, _ := a.Public.UpcomingEvents(ctx)
	return a.renderSitemap(c, posts, upcoming)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, _ := a.Public.PublishedPosts(c.Request().Context())
	return a.renderRSS(c, posts)
}

// handleRobots serves robots.txt from the static dir, or a default that
// keeps crawlers out of the admin panel.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	body := "User-agent: *\nDisallow: /admin/\n\nSitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if _, err := a.Events.Count(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) notFound(c echo.Context) error {
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = a.notFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func head[E any](items []E, n int) []E {
	if len(items) > n {
		return items[:n]
	}
	return items
}
