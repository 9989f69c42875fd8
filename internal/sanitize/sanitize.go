// Package sanitize strips markup and script vectors from free-text input
// before it is sent to the backing service.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// The strict policy drops every tag. Script and style elements lose their
// contents too, so "<script>alert(1)</script>Hello" becomes "Hello" while
// plain nested text like "<b>bold</b>" keeps its "bold".
var policy = bluemonday.StrictPolicy()

var jsScheme = regexp.MustCompile(`(?i)javascript\s*:`)

// Text sanitizes a single free-text field: removes tags (including script
// and iframe bodies), inline event-handler attributes, and javascript:
// scheme prefixes, preserving the remaining plain text.
func Text(s string) string {
	out := policy.Sanitize(s)
	// Sanitize entity-escapes the surviving text; these fields are stored
	// and rendered as plain text, so fold the escapes back.
	out = html.UnescapeString(out)
	out = jsScheme.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
