// Package core owns the in-memory help content graph: pages, ids, HelpIDs,
// and breadcrumbs derived from a parsed table of contents.
package core

// Page is a single node of the help graph, either a browsable section or a
// leaf content page. Both kinds may carry children in the source TOC, but
// only sections are offered as browse targets.
type Page struct {
	ID        string
	Text      string
	FilePath  string
	HelpID    string
	ParentID  string
	ChildIDs  []string
	IsSection bool
}

// Collision records a HelpID that was claimed by more than one page; the
// last page parsed wins and the earlier one is reported here.
type Collision struct {
	HelpID        string
	DroppedPageID string
	KeptPageID    string
}

// CycleBreak records a breadcrumb walk that revisited a page, indicating a
// corrupt parent chain in the source TOC.
type CycleBreak struct {
	PageID     string
	RevisitsID string
}
