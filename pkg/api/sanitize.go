package api

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// fragmentPolicy allows only <mark> tags, so a matched term can be rendered
// as real markup without opening an XSS hole through vendor-authored page
// titles or snippet text.
var fragmentPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("mark")

	return p
}()

// snippetHTML renders a facade snippet (bracketed with ASCII "[" "]" around
// the matched span) as sanitized HTML with the match wrapped in <mark>, for
// callers embedding results directly into a browser-rendered help widget.
func snippetHTML(snippet string) template.HTML {
	replacer := strings.NewReplacer("[", "<mark>", "]", "</mark>")

	return template.HTML(fragmentPolicy.Sanitize(replacer.Replace(snippet))) //nolint:gosec // sanitized by bluemonday
}
