// Package toc streams a B&R-style help table of contents into a sequence of
// pages, without materializing the document as a DOM.
package toc

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"

	"github.com/brdk/as-help-index/pkg/core"
)

// dialect maps the logical TOC concepts (section, page, identifiers
// container, help id) onto the element and attribute names of one of the
// two supported XML vocabularies.
type dialect struct {
	section     string
	page        string
	identifiers string
	helpID      string
	idAttr      string
	textAttr    string
	fileAttr    string
	valueAttr   string
}

var verboseDialect = dialect{
	section:     "Section",
	page:        "Page",
	identifiers: "Identifiers",
	helpID:      "HelpID",
	idAttr:      "Id",
	textAttr:    "Text",
	fileAttr:    "File",
	valueAttr:   "Value",
}

var abbreviatedDialect = dialect{
	section:     "S",
	page:        "P",
	identifiers: "I",
	helpID:      "H",
	idAttr:      "Id",
	textAttr:    "t",
	fileAttr:    "p",
	valueAttr:   "v",
}

// Parse streams xml from r and returns the pages it describes in document
// order. It returns an error only for malformed XML syntax; a document that
// parses but yields zero pages is reported by returning an empty, non-nil
// slice — callers decide whether that constitutes SourceMalformed.
func Parse(r io.Reader) ([]*core.Page, error) {
	decoder := xml.NewDecoder(r)

	var (
		pages         = make([]*core.Page, 0)
		dlct          *dialect
		nodeStack     []*core.Page // nil entries mark a skipped (id-less) frame
		inIdentifiers bool
		idsSeen       = make(map[string]bool)
	)

	currentParent := func() *core.Page {
		for i := len(nodeStack) - 1; i >= 0; i-- {
			if nodeStack[i] != nil {
				return nodeStack[i]
			}
		}

		return nil
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read toc token: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			name := el.Name.Local

			if dlct == nil {
				if d := sniff(name); d != nil {
					dlct = d
				}
			}

			if dlct == nil {
				continue
			}

			switch name {
			case dlct.section, dlct.page:
				id := attrValue(el, dlct.idAttr)
				if id == "" {
					slog.Warn("toc element missing id, descendants reattach to nearest ancestor", "element", name)
					nodeStack = append(nodeStack, nil)

					continue
				}

				if idsSeen[id] {
					slog.Warn("toc id reused, later occurrence ignored for graph linkage", "id", id)
					nodeStack = append(nodeStack, nil)

					continue
				}

				idsSeen[id] = true

				page := &core.Page{
					ID:        id,
					Text:      attrValue(el, dlct.textAttr),
					FilePath:  attrValue(el, dlct.fileAttr),
					IsSection: name == dlct.section,
				}

				if parent := currentParent(); parent != nil {
					page.ParentID = parent.ID
					parent.ChildIDs = append(parent.ChildIDs, page.ID)
				}

				pages = append(pages, page)
				nodeStack = append(nodeStack, page)
			case dlct.identifiers:
				inIdentifiers = true
			case dlct.helpID:
				if inIdentifiers {
					if parent := currentParent(); parent != nil {
						if v := attrValue(el, dlct.valueAttr); v != "" {
							parent.HelpID = v
						}
					}
				}
			}
		case xml.EndElement:
			if dlct == nil {
				continue
			}

			switch el.Name.Local {
			case dlct.section, dlct.page:
				if len(nodeStack) > 0 {
					nodeStack = nodeStack[:len(nodeStack)-1]
				}
			case dlct.identifiers:
				inIdentifiers = false
			}
		}
	}

	return pages, nil
}

// sniff returns the dialect whose section or page element name matches the
// given local element name, or nil if it matches neither dialect.
func sniff(name string) *dialect {
	switch name {
	case verboseDialect.section, verboseDialect.page:
		d := verboseDialect
		return &d
	case abbreviatedDialect.section, abbreviatedDialect.page:
		d := abbreviatedDialect
		return &d
	default:
		return nil
	}
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}

	return ""
}
