// Package htmlsanitize sanitizes user-supplied rich text before storage and
// display. Complaint bodies and request motives pass through here so stored
// content is always safe to render.
package htmlsanitize

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td", "p", "span", "div")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return p
}

// Sanitize strips dangerous markup and returns safe HTML. Plain text passes
// through unchanged.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}
	return policy.Sanitize(input)
}

// SanitizeToHTML sanitizes and returns the result as template.HTML, ready to
// embed without re-escaping.
func SanitizeToHTML(input string) template.HTML {
	return template.HTML(Sanitize(input))
}

// IsPlainText reports whether the input contains no HTML tags. A stray < or >
// on its own (e.g. "5 < 10") still counts as plain text.
func IsPlainText(input string) bool {
	lt := strings.Index(input, "<")
	if lt == -1 {
		return true
	}
	return !strings.Contains(input[lt:], ">")
}

// PlainTextToHTML escapes plain text and wraps it in a paragraph, converting
// newlines to <br>.
func PlainTextToHTML(input string) string {
	if input == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(input)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay renders stored content for a page: plain text is escaped
// and paragraph-wrapped, HTML is sanitized.
func PrepareForDisplay(input string) template.HTML {
	if input == "" {
		return ""
	}
	if IsPlainText(input) {
		return template.HTML(PlainTextToHTML(input))
	}
	return SanitizeToHTML(input)
}
