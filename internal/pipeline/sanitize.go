package pipeline

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// classPattern restricts class attributes to chroma and GFM token classes.
var classPattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// Sanitizer strips scripts, event handlers and unsafe URLs from rendered HTML.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer based on the bluemonday UGC policy,
// extended with the markup Goldmark emits for highlighting, task lists
// and ==highlight== marks.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classPattern).OnElements("code", "pre", "span", "div", "li", "ul", "ol", "sup", "a", "section")
	p.AllowElements("mark", "section")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AllowAttrs("role").Matching(regexp.MustCompile(`^doc-[a-z]+$`)).OnElements("a", "section", "div")
	p.AllowDataURIImages()
	return &Sanitizer{policy: p}
}

// Sanitize returns the sanitized form of an HTML fragment.
func (s *Sanitizer) Sanitize(fragment string) string {
	return s.policy.Sanitize(fragment)
}
