package clubsite

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/notify"
)

// Form inputs read on save, in display order. A missing input (an
// unchecked checkbox) is read as the empty string.
var (
	eventFields = []string{"title", "description", "eventDate", "venue", "eventType", "maxParticipants", "imageUrl", "registrationLink", "brochureLink", "status"}
	blogFields  = []string{"title", "excerpt", "content", "author", "category", "imageUrl", "instagramUrl", "published"}
)

func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) || adminSessionID(c) == "" {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

// panel returns the admin panel of the current session.
func (a *App) panel(c echo.Context) (*admin.Panel, *notify.Flash) {
	return a.panels.get(c.Request().Context(), adminSessionID(c))
}

// done moves the panel's notifications into the session and redirects
// back to the dashboard.
func (a *App) done(c echo.Context, flash *notify.Flash, section admin.SectionID) error {
	if err := addFlash(c, flash.Drain(a.Config.Locale)...); err != nil {
		return err
	}
	target := "/admin/"
	if section != admin.SectionNone {
		target += "#" + string(section)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) || adminSessionID(c) == "" {
		return a.renderLogin(c, http.StatusOK, a.Config.AdminEmail)
	}
	p, flash := a.panel(c)
	page := a.page(c, PageMeta{Title: "Admin | " + a.Config.Name})
	page.Flashes = append(page.Flashes, flash.Drain(a.Config.Locale)...)
	return Render(c, a.Views.AdminDashboard(DashboardPage{
		Page:         page,
		Stats:        p.Stats(),
		Expanded:     p.Expanded(),
		Events:       sectionView(p.Events),
		Blogs:        sectionView(p.Blogs),
		Testimonials: p.Testimonials.Items(),
		Members:      a.Config.Members,
		EventTypes:   content.EventTypes,
		Statuses:     content.EventStatuses,
		Categories:   content.BlogCategories,
	}))
}

func sectionView[E content.Record, D any, P interface {
	*D
	content.Draft
}](s *admin.Section[E, P]) SectionView[E, D] {
	v := SectionView[E, D]{
		Items:   s.Cache.Items(),
		Loading: s.Cache.Loading(),
		Loaded:  s.Cache.Loaded(),
		Mode:    s.Form.Mode(),
	}
	if d := s.Form.Draft(); d != nil {
		v.Draft = *d
	}
	if e, ok := s.Form.Editing(); ok {
		v.EditingID = e.RecordID()
	}
	return v
}

func (a *App) renderLogin(c echo.Context, status int, email string, msgs ...notify.Message) error {
	p := a.page(c, PageMeta{Title: "Admin | " + a.Config.Name})
	p.Flashes = append(p.Flashes, msgs...)
	return RenderStatus(c, status, a.Views.AdminLogin(LoginPage{Page: p, Email: email}))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	log := a.Logger.Named("auth").With(zap.String("ip", ip))

	if !a.loginLimiter.Check(ip) {
		log.Warn("login rate limited")
		return a.renderLogin(c, http.StatusTooManyRequests, email, a.message("error", "login.limited", nil))
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(ip)
		log.Info("login failed")
		return a.renderLogin(c, http.StatusUnauthorized, email, a.message("error", "login.failed", nil))
	}
	if email != "" {
		isAdmin, err := a.Profiles.HasRole(c.Request().Context(), email, content.RoleAdmin)
		switch {
		case errors.Is(err, content.ErrNotFound):
		case err != nil:
			return err
		case !isAdmin:
			a.loginLimiter.Record(ip)
			log.Info("login forbidden", zap.String("email", email))
			return a.renderLogin(c, http.StatusForbidden, email, a.message("error", "login.forbidden", nil))
		}
	}

	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, email); err != nil {
		return err
	}
	log.Info("login", zap.String("email", email))
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if sid := adminSessionID(c); sid != "" {
		a.panels.drop(sid)
	}
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func parseSection(c echo.Context) (admin.SectionID, error) {
	s, err := admin.ParseSection(c.Param("section"))
	if err != nil {
		return s, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return s, nil
}

func (a *App) handleAdminToggle(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, flash := a.panel(c)
	open, _ := p.Toggle(section)
	return a.done(c, flash, open)
}

func (a *App) handleAdminNew(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, flash := a.panel(c)
	if err := p.Expand(section); err != nil {
		return err
	}
	switch section {
	case admin.SectionEvents:
		err = p.Events.Form.StartCreate()
	case admin.SectionBlogs:
		err = p.Blogs.Form.StartCreate()
	default:
		return echo.ErrNotFound
	}
	a.formError(flash, section, "start create", err)
	return a.done(c, flash, section)
}

func (a *App) handleAdminEdit(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, flash := a.panel(c)
	if err := p.Expand(section); err != nil {
		return err
	}
	id := c.Param("id")
	switch section {
	case admin.SectionEvents:
		err = startEdit(p.Events, id)
	case admin.SectionBlogs:
		err = startEdit(p.Blogs, id)
	default:
		return echo.ErrNotFound
	}
	if errors.Is(err, content.ErrNotFound) {
		return a.notFound(c)
	}
	a.formError(flash, section, "start edit", err)
	return a.done(c, flash, section)
}

func startEdit[E content.Record, D content.Draft](s *admin.Section[E, D], id string) error {
	e, ok := s.Find(id)
	if !ok {
		return content.ErrNotFound
	}
	return s.Form.StartEdit(e)
}

func (a *App) handleAdminCancel(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, flash := a.panel(c)
	switch section {
	case admin.SectionEvents:
		p.Events.Form.Cancel()
	case admin.SectionBlogs:
		p.Blogs.Form.Cancel()
	default:
		return echo.ErrNotFound
	}
	return a.done(c, flash, section)
}

// handleAdminSave copies the posted inputs into the open form and submits
// it. Outcomes reach the user as notifications.
func (a *App) handleAdminSave(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, flash := a.panel(c)
	if err := p.Expand(section); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.FormValue("id")
	switch section {
	case admin.SectionEvents:
		err = submit(ctx, p.Events, id, eventFields, c.FormValue)
	case admin.SectionBlogs:
		err = submit(ctx, p.Blogs, id, blogFields, c.FormValue)
	default:
		return echo.ErrNotFound
	}
	a.formError(flash, section, "submit", err)
	return a.done(c, flash, section)
}

// reopen puts the form into the mode the post was made from. A form lost
// to panel eviction or a restart, or one showing another record, is
// started again so the posted values are not thrown away.
func reopen[E content.Record, D content.Draft](s *admin.Section[E, D], id string) error {
	switch s.Form.Mode() {
	case admin.ModeSubmitting:
		return admin.ErrSubmitInFlight
	case admin.ModeCreate:
		if id == "" {
			return nil
		}
	case admin.ModeEdit:
		if e, ok := s.Form.Editing(); ok && e.RecordID() == id {
			return nil
		}
	}
	if id == "" {
		return s.Form.StartCreate()
	}
	return startEdit(s, id)
}

func submit[E content.Record, D content.Draft](ctx context.Context, s *admin.Section[E, D], id string, fields []string, value func(string) string) error {
	if err := reopen(s, id); err != nil {
		return err
	}
	for _, name := range fields {
		if err := s.Form.SetField(name, value(name)); err != nil {
			return err
		}
	}
	return s.Form.Submit(ctx)
}

// formError reports form failures the panel has not already announced.
// Repository failures reach the user through the panel's notifier.
func (a *App) formError(flash *notify.Flash, section admin.SectionID, action string, err error) {
	if err == nil {
		return
	}
	var key string
	switch {
	case errors.Is(err, admin.ErrSubmitInFlight):
		key = "form.busy"
	case errors.Is(err, admin.ErrFormClosed):
		key = "form.closed"
	case errors.Is(err, content.ErrNotFound):
		key = "form.missing"
	case errors.Is(err, content.ErrUnknownField):
		key = "form.invalid"
	default:
		return
	}
	a.Logger.Named("admin").Info("form action rejected", zap.String("section", string(section)), zap.String("action", action), zap.Error(err))
	flash.Notify(admin.Notification{Level: admin.LevelError, Key: key})
}

func (a *App) handleAdminConfirmDelete(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, _ := a.panel(c)
	id := c.Param("id")
	var (
		title string
		ok    bool
	)
	switch section {
	case admin.SectionEvents:
		var e content.Event
		e, ok = p.Events.Find(id)
		title = e.Title
	case admin.SectionBlogs:
		var b content.BlogPost
		b, ok = p.Blogs.Find(id)
		title = b.Title
	default:
		return echo.ErrNotFound
	}
	if !ok {
		return a.notFound(c)
	}
	return Render(c, a.Views.AdminConfirm(ConfirmPage{
		Page:    a.page(c, PageMeta{Title: "Delete | " + a.Config.Name}),
		Section: section,
		ID:      id,
		Title:   title,
	}))
}

// handleAdminDelete deletes only when the confirmation form answered yes.
func (a *App) handleAdminDelete(c echo.Context) error {
	section, err := parseSection(c)
	if err != nil {
		return err
	}
	p, flash := a.panel(c)
	confirm := admin.ConfirmFunc(func(_ context.Context, _ admin.SectionID, _ string) bool {
		return c.FormValue("confirm") == "yes"
	})
	err = p.Delete(c.Request().Context(), section, c.Param("id"), confirm)
	switch {
	case errors.Is(err, admin.ErrConfirmationAborted):
		flash.Notify(admin.Notification{Level: admin.LevelInfo, Key: "delete.aborted"})
	case errors.Is(err, admin.ErrUnknownSection):
		return echo.ErrNotFound
	}
	return a.done(c, flash, section)
}
