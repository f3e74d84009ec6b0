// Package views provides the default templates of the club site. Pages are
// html/template files embedded in the binary and exposed as templ
// components through clubsite.ViewFuncs.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/clubsite"
	"github.com/eringen/clubsite/admin"
	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages lists every page template; each is parsed together with base.html.
var pages = []string{
	"home", "events", "blog", "post", "members", "feedbacks", "contact",
	"login", "dashboard", "confirm", "images", "error",
}

type renderer struct {
	cfg   clubsite.SiteConfig
	pages map[string]*template.Template
}

// New parses the embedded templates. It panics on a template error, which
// can only come from a broken build.
func New(cfg clubsite.SiteConfig) clubsite.ViewFuncs {
	r := &renderer{cfg: cfg, pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs(cfg)).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			panic(fmt.Sprintf("views: parse %s: %v", name, err))
		}
		r.pages[name] = t
	}

	return clubsite.ViewFuncs{
		Home:           func(p clubsite.HomePage) templ.Component { return r.component("home", p) },
		Events:         func(p clubsite.EventsPage) templ.Component { return r.component("events", p) },
		Blog:           func(p clubsite.BlogPage) templ.Component { return r.component("blog", p) },
		Post:           func(p clubsite.PostPage) templ.Component { return r.component("post", p) },
		Members:        func(p clubsite.MembersPage) templ.Component { return r.component("members", p) },
		Feedbacks:      func(p clubsite.FeedbacksPage) templ.Component { return r.component("feedbacks", p) },
		Contact:        func(p clubsite.ContactPage) templ.Component { return r.component("contact", p) },
		AdminLogin:     func(p clubsite.LoginPage) templ.Component { return r.component("login", p) },
		AdminDashboard: func(p clubsite.DashboardPage) templ.Component { return r.component("dashboard", p) },
		AdminConfirm:   func(p clubsite.ConfirmPage) templ.Component { return r.component("confirm", p) },
		AdminImages:    func(p clubsite.ImagesPage) templ.Component { return r.component("images", p) },
		NotFound: func() templ.Component {
			return r.component("error", r.errorPage("Page not found", "The page you are looking for does not exist."))
		},
		ServerError: func() templ.Component {
			return r.component("error", r.errorPage("Something went wrong", "Please try again in a moment."))
		},
	}
}

// errorPage is the model of the not found and server error pages.
type errorPage struct {
	clubsite.Page
	Heading string
	Detail  string
}

func (r *renderer) errorPage(heading, detail string) errorPage {
	return errorPage{
		Page:    clubsite.Page{Site: r.cfg, Meta: clubsite.PageMeta{Title: heading + " | " + r.cfg.Name}},
		Heading: heading,
		Detail:  detail,
	}
}

func (r *renderer) component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := r.pages[name].ExecuteTemplate(&buf, "base", data); err != nil {
			return fmt.Errorf("views: render %s: %w", name, err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func funcs(cfg clubsite.SiteConfig) template.FuncMap {
	return template.FuncMap{
		"markdown": func(s string) template.HTML {
			var buf bytes.Buffer
			markdown.RenderMarkdown(&buf, s)
			return template.HTML(buf.String())
		},
		"safeURL": safeURL,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"date":      formatDate,
		"timestamp": func(t time.Time) string { return t.Format("2 Jan 2006") },
		"stars": func(n int) string {
			n = min(max(n, 0), 5)
			return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
		},
		"summary": clubsite.PostSummary,
		"siteLD":  func() template.JS { return template.JS(clubsite.WebsiteJsonLD(cfg)) },
		"postLD":  func(p content.BlogPost) template.JS { return template.JS(clubsite.BlogPostingJsonLD(p, cfg)) },
		"eventLD": func(e content.Event) template.JS { return template.JS(clubsite.EventJsonLD(e, cfg)) },
		"section": func(id, label string, expanded admin.SectionID, csrf string) toggleData {
			return toggleData{ID: id, Label: label, Open: string(expanded) == id, CSRF: csrf}
		},
		"formData": func(view any, csrf string, types, options []string) formData {
			return formData{View: view, CSRF: csrf, Types: types, Options: options}
		},
		"categories":  func() []string { return content.BlogCategories },
		"withCurrent": withCurrent,
		"year":        func() int { return time.Now().Year() },
		"kb":          func(n int64) string { return fmt.Sprintf("%.1f KB", float64(n)/1024) },
		"title":       func(s string) string { return strings.ToUpper(s[:min(1, len(s))]) + s[min(1, len(s)):] },
	}
}

// toggleData renders one accordion header.
type toggleData struct {
	ID, Label, CSRF string
	Open            bool
}

// formData hands a section snapshot and its select options to a form
// template.
type formData struct {
	View    any
	CSRF    string
	Types   []string
	Options []string
}

// withCurrent returns options with cur appended when it is set and not
// already listed, so a select never silently changes a stored value.
func withCurrent(options []string, cur string) []string {
	if cur == "" || slices.Contains(options, cur) {
		return options
	}
	return append(slices.Clip(options), cur)
}

// safeURL keeps http(s), mailto, tel and site-relative URLs and drops
// everything else.
func safeURL(raw any) string {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case *string:
		if v != nil {
			s = *v
		}
	}
	if markdown.SafeURL(s) == "" {
		return ""
	}
	return strings.TrimSpace(s)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "TBA"
	}
	return t.Format("Mon, 2 Jan 2006")
}
