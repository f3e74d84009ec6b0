// Package markdown renders blog post bodies to HTML as a templ component.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in post bodies is not rendered; goldmark drops it unless
// WithUnsafe is set.
var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

var (
	reCodeBlock    = regexp.MustCompile(`<pre><code class="language-([A-Za-z0-9_+-]+)">`)
	rePlainCode    = regexp.MustCompile(`<pre><code>`)
	reExternalLink = regexp.MustCompile(`<a href="(https?://[^"]*)"`)
	reCodeClose    = regexp.MustCompile(`</code></pre>`)
)

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderMarkdown(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderMarkdown writes the HTML representation of md to buf. Input that
// goldmark cannot convert is written escaped.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	md = strings.TrimSpace(md)
	if md == "" {
		return
	}
	var out bytes.Buffer
	if err := engine.Convert([]byte(md), &out); err != nil {
		buf.WriteString("<p>" + html.EscapeString(md) + "</p>")
		return
	}
	buf.WriteString(decorate(out.String()))
}

// decorate adds the code-block badge markup and opens external links in a
// new tab.
func decorate(s string) string {
	var b strings.Builder
	for {
		loc := reCodeBlock.FindStringSubmatchIndex(s)
		plain := rePlainCode.FindStringIndex(s)
		if loc == nil && plain == nil {
			b.WriteString(s)
			break
		}
		if loc != nil && (plain == nil || loc[0] < plain[0]) {
			lang := s[loc[2]:loc[3]]
			b.WriteString(s[:loc[0]])
			b.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + lang + `">` + lang + `</span>`)
			b.WriteString(`<pre class="code-block"><code class="language-` + lang + `">`)
			rest := s[loc[1]:]
			end := reCodeClose.FindStringIndex(rest)
			if end == nil {
				b.WriteString(rest)
				break
			}
			b.WriteString(rest[:end[1]] + `</div>`)
			s = rest[end[1]:]
			continue
		}
		b.WriteString(s[:plain[0]] + `<pre class="code-block"><code>`)
		s = s[plain[1]:]
	}
	return reExternalLink.ReplaceAllString(b.String(), `<a href="$1" target="_blank" rel="noopener noreferrer"`)
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
