// Package htmlpage strips markup from vendor help HTML fragments, returning
// a title and plain-text body suitable for indexing.
package htmlpage

import (
	"log/slog"
	"strings"

	"github.com/anaskhan96/soup"
	"golang.org/x/net/html"
)

// Extract parses fileBytes as HTML and returns its title and visible body
// text. Title is the first <title> element's text, falling back to the
// first <h1>, else empty. plainText has script/style subtrees removed and
// whitespace collapsed. Empty input yields ("", ""); unparsable input
// yields ("", "") and is logged. Extraction never returns an error, by
// construction.
func Extract(fileBytes []byte) (title, plainText string) {
	if len(fileBytes) == 0 {
		return "", ""
	}

	root := soup.HTMLParse(string(fileBytes))
	if root.Error != nil {
		slog.Warn("failed to parse help page html", "error", root.Error)
		return "", ""
	}

	title = firstTitle(root)

	body := root.Find("body")
	if body.Error != nil {
		// No <body> element -- fall back to walking the whole document.
		body = root
	}

	var sb strings.Builder

	walkText(body.Pointer, &sb)

	plainText = collapseWhitespace(sb.String())

	return title, plainText
}

// firstTitle returns the text of the first <title>, falling back to the
// first <h1>, else the empty string.
func firstTitle(root soup.Root) string {
	if t := root.Find("title"); t.Error == nil {
		if text := strings.TrimSpace(t.FullText()); text != "" {
			return text
		}
	}

	if h1 := root.Find("h1"); h1.Error == nil {
		return strings.TrimSpace(h1.FullText())
	}

	return ""
}

// walkText recursively appends the text content of n, skipping the
// contents of <script> and <style> elements entirely.
func walkText(n *html.Node, sb *strings.Builder) {
	if n == nil {
		return
	}

	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}

	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, sb)
	}
}

// collapseWhitespace reduces runs of whitespace to single spaces and trims
// the result.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
