package clubsite

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eringen/clubsite/remote"
)

// DefaultConfigPath is read by LoadConfig when no path is given.
const DefaultConfigPath = "clubsite.yml"

// SiteConfig holds all configuration for the club site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Computer Club")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	School      string `yaml:"school"`
	Email       string `yaml:"email"` // Public contact address

	Env          string `yaml:"env"`          // "development" | "production"
	Addr         string `yaml:"addr"`         // Listen address (default ":3000")
	DatabaseURL  string `yaml:"database_url"` // postgres:// URL or SQLite path (default "data/club.db")
	StaticDir    string `yaml:"static_dir"`   // User static assets and uploads (default "public")
	Locale       string `yaml:"locale"`       // Notification language (default "en")
	AdminEmail   string `yaml:"admin_email"`  // Prefilled on the login form
	CookieSecure bool   `yaml:"cookie_secure"`

	AdminPassword string `yaml:"admin_password"` // Required
	SessionSecret string `yaml:"session_secret"` // Required

	PublicCacheTTL time.Duration `yaml:"public_cache_ttl"` // default 5m
	PanelIdleTTL   time.Duration `yaml:"panel_idle_ttl"`   // default 30m

	LoginAttempts   int `yaml:"login_attempts"`   // per minute per IP (default 5)
	ContactMessages int `yaml:"contact_messages"` // per hour per IP (default 3)

	Members []Member `yaml:"members"` // Roster; defaults to DefaultMembers
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Computer Club"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/club.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.PublicCacheTTL == 0 {
		c.PublicCacheTTL = 5 * time.Minute
	}
	if c.PanelIdleTTL == 0 {
		c.PanelIdleTTL = 30 * time.Minute
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.ContactMessages == 0 {
		c.ContactMessages = 3
	}
	if len(c.Members) == 0 {
		c.Members = DefaultMembers
	}
}

func (c *SiteConfig) validate() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return errors.New("clubsite: AdminPassword is required")
	}
	if strings.TrimSpace(c.SessionSecret) == "" {
		return errors.New("clubsite: SessionSecret is required")
	}
	return nil
}

// Production reports whether Env selects production behavior.
func (c SiteConfig) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadConfig builds a SiteConfig from an optional YAML file and CLUB_*
// environment variables, which win over the file. A .env file in the
// working directory is loaded first when present. A missing file at
// DefaultConfigPath is not an error.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load()

	var cfg SiteConfig
	explicit := path != ""
	if !explicit {
		path = EnvOr("CLUB_CONFIG", DefaultConfigPath)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("clubsite: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("clubsite: read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(c *SiteConfig) error {
	strs := map[string]*string{
		"CLUB_NAME":           &c.Name,
		"CLUB_URL":            &c.URL,
		"CLUB_DESCRIPTION":    &c.Description,
		"CLUB_SCHOOL":         &c.School,
		"CLUB_EMAIL":          &c.Email,
		"CLUB_ENV":            &c.Env,
		"CLUB_ADDR":           &c.Addr,
		"CLUB_DATABASE_URL":   &c.DatabaseURL,
		"CLUB_STATIC_DIR":     &c.StaticDir,
		"CLUB_LOCALE":         &c.Locale,
		"CLUB_ADMIN_EMAIL":    &c.AdminEmail,
		"CLUB_ADMIN_PASSWORD": &c.AdminPassword,
		"CLUB_SESSION_SECRET": &c.SessionSecret,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CLUB_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("clubsite: CLUB_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	durations := map[string]*time.Duration{
		"CLUB_PUBLIC_CACHE_TTL": &c.PublicCacheTTL,
		"CLUB_PANEL_IDLE_TTL":   &c.PanelIdleTTL,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("clubsite: %s: %w", key, err)
			}
			*dst = d
		}
	}
	ints := map[string]*int{
		"CLUB_LOGIN_ATTEMPTS":   &c.LoginAttempts,
		"CLUB_CONTACT_MESSAGES": &c.ContactMessages,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("clubsite: %s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger replaces the logger built from Env.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithBackend uses b instead of opening DatabaseURL. The caller keeps
// ownership of migrations.
func WithBackend(b remote.Backend) Option {
	return func(a *App) {
		a.backend = b
	}
}

// WithRegistry sets where metrics are registered (default: a fresh
// registry served on /metrics).
func WithRegistry(r *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = r
	}
}
