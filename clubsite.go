// Package clubsite is the web server of a school computer club: public
// pages for events, the blog, members and feedback, plus an admin panel
// that manages events and blog posts in the club database.
//
// Templates are supplied through ViewFuncs; clubsite owns the handlers,
// middleware, caches and the database wiring.
package clubsite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/notify"
	"github.com/eringen/clubsite/remote"
)

// ViewFuncs holds the templ components the handlers render. Supplying
// them lets a deployment own every template; package views has defaults.
type ViewFuncs struct {
	Home           func(HomePage) templ.Component
	Events         func(EventsPage) templ.Component
	Blog           func(BlogPage) templ.Component
	Post           func(PostPage) templ.Component
	Members        func(MembersPage) templ.Component
	Feedbacks      func(FeedbacksPage) templ.Component
	Contact        func(ContactPage) templ.Component
	AdminLogin     func(LoginPage) templ.Component
	AdminDashboard func(DashboardPage) templ.Component
	AdminConfirm   func(ConfirmPage) templ.Component
	AdminImages    func(ImagesPage) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App wires together the database client, repositories, caches,
// handlers and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Logger *zap.Logger
	Views  ViewFuncs

	Client       *remote.Client
	Events       *content.Repository[content.Event, *content.EventDraft]
	Blogs        *content.Repository[content.BlogPost, *content.BlogDraft]
	Testimonials *content.TestimonialRepository
	Profiles     *content.ProfileRepository
	Public       *PublicCache
	Translator   *notify.Translator

	backend      remote.Backend
	registry     *prometheus.Registry
	panels       *panelRegistry
	loginLimiter *LoginLimiter
	validate     *validator.Validate
	customRoutes []func(*App)
	ready        bool
}

// New creates an App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:   cfg,
		Echo:     echo.New(),
		Views:    views,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = NewLogger(cfg)
	}
	return a
}

// NewLogger returns a production logger when cfg.Env is "production" and a
// development logger otherwise.
func NewLogger(cfg SiteConfig) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.Production() {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Init opens the database and registers middleware and routes. Start calls
// it; tests call it directly and drive a.Echo.
func (a *App) Init(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	if a.backend == nil {
		b, err := remote.Open(ctx, a.Config.DatabaseURL, a.Logger)
		if err != nil {
			return fmt.Errorf("clubsite: open database: %w", err)
		}
		a.backend = b
	}
	a.Client = remote.NewClient(remote.Instrument(a.backend, a.registry))

	repoLog := content.WithLogger(a.Logger.Named("content"))
	a.Events = content.NewEventRepository(a.Client, repoLog)
	a.Blogs = content.NewBlogRepository(a.Client, repoLog)
	a.Testimonials = content.NewTestimonialRepository(a.Client, repoLog)
	a.Profiles = content.NewProfileRepository(a.Client, repoLog)

	a.Public = NewPublicCache(a.Events, a.Blogs, a.Testimonials, a.Config.PublicCacheTTL, a.Logger.Named("cache"))
	a.Translator = notify.NewTranslator(a.Config.Locale, a.Logger.Named("i18n"))
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, time.Minute)
	a.panels = newPanelRegistry(a.Config.PanelIdleTTL, a.newPanel, a.Logger.Named("admin"))

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// newPanel builds the admin panel for one session. Its notifications are
// queued on the returned Flash.
func (a *App) newPanel() (*admin.Panel, *notify.Flash) {
	flash := notify.NewFlash(a.Translator)
	p := admin.NewPanel(admin.Deps{
		Events:       a.Events,
		Blogs:        a.Blogs,
		Testimonials: a.Testimonials,
		Notifier:     flash,
		MemberCount:  len(a.Config.Members),
		OnMutation:   a.Public.Invalidate,
		Logger:       a.Logger.Named("admin"),
	})
	return p, flash
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("database", describeDatabase(a.Config.DatabaseURL)))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close releases background workers and the database.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.panels != nil {
		a.panels.Stop()
	}
	var err error
	if a.Client != nil {
		err = a.Client.Close()
	} else if a.backend != nil {
		err = a.backend.Close()
	}
	_ = a.Logger.Sync()
	return err
}

func describeDatabase(url string) string {
	if remote.IsPostgres(url) {
		return "postgres"
	}
	return "sqlite"
}
