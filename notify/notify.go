// Package notify turns admin notifications into user-visible text.
package notify

import (
	"embed"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/eringen/clubsite/admin"
)

//go:embed active.*.toml
var localeFS embed.FS

// Translator resolves message ids with go-i18n.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	log             *zap.Logger
}

// NewTranslator loads the embedded message files. An unparseable locale
// falls back to English.
func NewTranslator(defaultLocale string, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, _ := localeFS.ReadDir(".")
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, f.Name()); err != nil {
			logger.Warn("i18n: failed to load message file", zap.String("file", f.Name()), zap.Error(err))
		}
	}
	return &Translator{bundle: bundle, defaultLanguage: tag, log: logger}
}

// T renders key for locale, then the default locale, then returns the key
// itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	msg, err := i18n.NewLocalizer(t.bundle, languages...).Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.log.Debug("i18n: localize failed", zap.String("key", key), zap.Strings("locales", languages), zap.Error(err))
		return key
	}
	return msg
}

// Message is a rendered notification.
type Message struct {
	Level string
	Text  string
}

// Flash queues notifications until the HTTP layer drains them into the
// session. It is safe for concurrent use.
type Flash struct {
	tr *Translator

	mu      sync.Mutex
	pending []admin.Notification
}

var _ admin.Notifier = (*Flash)(nil)

func NewFlash(tr *Translator) *Flash {
	return &Flash{tr: tr}
}

func (f *Flash) Notify(n admin.Notification) {
	f.mu.Lock()
	f.pending = append(f.pending, n)
	f.mu.Unlock()
}

// Drain renders and removes every queued notification.
func (f *Flash) Drain(locale string) []Message {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	out := make([]Message, 0, len(pending))
	for _, n := range pending {
		out = append(out, f.Render(locale, n))
	}
	return out
}

// Render turns one notification into a Message.
func (f *Flash) Render(locale string, n admin.Notification) Message {
	return Message{Level: n.Level.String(), Text: f.tr.T(locale, n.Key, n.Data)}
}
