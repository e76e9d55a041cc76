package core

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brdk/as-help-index/pkg/repo/fingerprint"
	"github.com/brdk/as-help-index/pkg/toc"
)

// State is the indexer's lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateStale
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateReady:
		return "READY"
	case StateStale:
		return "STALE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// tocFileName is the fixed name of the table-of-contents file under the help
// root.
const tocFileName = "brhelpcontent.xml"

// Indexer owns the parsed help page graph: the id map, the HelpID map, and
// lazily-computed breadcrumbs. It tracks freshness against a fingerprint
// sidecar shared with the search engine (pkg/repo/search), since both the
// indexer and the engine need to agree on whether the source has moved.
type Indexer struct {
	mu sync.RWMutex

	helpRoot        string
	fingerprintPath string

	state State

	pages      map[string]*Page
	helpIDs    map[string]*Page
	rootIDs    []string
	orderedIDs []string

	breadcrumbMu    sync.Mutex
	breadcrumbCache map[string][]*Page

	collisions  []Collision
	cycleBreaks []CycleBreak
}

// New constructs an Indexer over helpRoot. fingerprintPath is the sidecar
// file the search engine writes after a successful build; the indexer only
// ever reads it.
func New(helpRoot, fingerprintPath string) *Indexer {
	return &Indexer{
		helpRoot:        helpRoot,
		fingerprintPath: fingerprintPath,
		state:           StateUninitialized,
	}
}

// TOCPath returns the path to the table-of-contents file under the help
// root.
func (ix *Indexer) TOCPath() string {
	return filepath.Join(ix.helpRoot, tocFileName)
}

// ParseXMLStructure locates and parses the TOC, replacing the page graph.
// It fails with ErrSourceMissing if the TOC file is absent, or
// ErrSourceMalformed if parsing yields no pages.
func (ix *Indexer) ParseXMLStructure() error {
	tocPath := ix.TOCPath()

	f, err := os.Open(tocPath) //nolint:gosec // help root is an operator-configured, trusted directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrSourceMissing
		}

		return fmt.Errorf("failed to open toc file: %w", err)
	}

	defer f.Close()

	pages, err := toc.Parse(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceMalformed, err)
	}

	if len(pages) == 0 {
		return ErrSourceMalformed
	}

	pageMap := make(map[string]*Page, len(pages))
	helpIDMap := make(map[string]*Page, len(pages))
	collisions := make([]Collision, 0)
	rootIDs := make([]string, 0)
	orderedIDs := make([]string, 0, len(pages))

	for _, p := range pages {
		pageMap[p.ID] = p
		orderedIDs = append(orderedIDs, p.ID)

		if p.ParentID == "" {
			rootIDs = append(rootIDs, p.ID)
		}

		if p.HelpID == "" {
			continue
		}

		if existing, ok := helpIDMap[p.HelpID]; ok {
			slog.Warn("duplicate help id, last write wins", "help_id", p.HelpID, "kept_page_id", p.ID, "dropped_page_id", existing.ID)

			collisions = append(collisions, Collision{HelpID: p.HelpID, DroppedPageID: existing.ID, KeptPageID: p.ID})
		}

		helpIDMap[p.HelpID] = p
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.pages = pageMap
	ix.helpIDs = helpIDMap
	ix.rootIDs = rootIDs
	ix.orderedIDs = orderedIDs
	ix.collisions = collisions
	ix.cycleBreaks = nil
	ix.breadcrumbCache = make(map[string][]*Page)
	ix.state = StateReady

	return nil
}

// NeedsReindex reports whether the current TOC state differs from the
// fingerprint sidecar last written by the search engine. A sidecar that
// does not yet exist counts as stale.
func (ix *Indexer) NeedsReindex() bool {
	current, err := fingerprint.Compute(ix.TOCPath(), ix.helpRoot)
	if err != nil {
		return true
	}

	stored, err := fingerprint.Load(ix.fingerprintPath)
	if err != nil || stored == nil {
		return true
	}

	stale := !stored.Matches(current)

	if stale {
		ix.mu.Lock()

		if ix.state == StateReady {
			ix.state = StateStale
		}

		ix.mu.Unlock()
	}

	return stale
}

// Close transitions the indexer to CLOSED; subsequent lookups fail with
// ErrNotReady. Close is idempotent.
func (ix *Indexer) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.state = StateClosed
}

// State returns the indexer's current lifecycle state.
func (ix *Indexer) State() State {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.state
}

// Collisions returns the HelpID collisions observed during the last parse.
func (ix *Indexer) Collisions() []Collision {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.collisions
}

// CycleBreaks returns the breadcrumb cycles truncated since the last parse.
func (ix *Indexer) CycleBreaks() []CycleBreak {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.cycleBreaks
}

func (ix *Indexer) readableState() error {
	switch ix.state {
	case StateUninitialized, StateClosed:
		return ErrNotReady
	default:
		return nil
	}
}

// GetPageByID returns the page with the given id, or (nil, nil) if absent.
func (ix *Indexer) GetPageByID(id string) (*Page, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.readableState(); err != nil {
		return nil, err
	}

	return ix.pages[id], nil
}

// GetPageByHelpID returns the page registered under the given HelpID, or
// (nil, nil) if absent.
func (ix *Indexer) GetPageByHelpID(helpID string) (*Page, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.readableState(); err != nil {
		return nil, err
	}

	return ix.helpIDs[helpID], nil
}

// GetCategories returns the root-level pages in document order.
func (ix *Indexer) GetCategories() ([]*Page, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.readableState(); err != nil {
		return nil, err
	}

	out := make([]*Page, 0, len(ix.rootIDs))

	for _, id := range ix.rootIDs {
		out = append(out, ix.pages[id])
	}

	return out, nil
}

// AllPages returns every page in the graph in document order, the order
// they were declared in the source TOC before being indexed by id.
func (ix *Indexer) AllPages() ([]*Page, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.readableState(); err != nil {
		return nil, err
	}

	out := make([]*Page, 0, len(ix.orderedIDs))

	for _, id := range ix.orderedIDs {
		out = append(out, ix.pages[id])
	}

	return out, nil
}

// Browse returns the direct children of sectionID in document order. It
// returns (nil, nil) if the section does not exist, and ErrNotBrowsable if
// it exists but is not a section.
func (ix *Indexer) Browse(sectionID string) ([]*Page, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.readableState(); err != nil {
		return nil, err
	}

	section, ok := ix.pages[sectionID]
	if !ok {
		return nil, nil //nolint:nilnil // absent page is reported as not-found, not an error
	}

	if !section.IsSection {
		return nil, ErrNotBrowsable
	}

	children := make([]*Page, 0, len(section.ChildIDs))

	for _, id := range section.ChildIDs {
		if child, ok := ix.pages[id]; ok {
			children = append(children, child)
		}
	}

	return children, nil
}

// GetBreadcrumb returns the ordered ancestor chain of id, inclusive, root
// first. Results are memoized; the memo is safe because the page graph is
// immutable once a parse completes. Cycles are detected and truncated at
// the first revisit.
func (ix *Indexer) GetBreadcrumb(id string) ([]*Page, error) {
	ix.mu.RLock()

	if err := ix.readableState(); err != nil {
		ix.mu.RUnlock()
		return nil, err
	}

	page, ok := ix.pages[id]

	ix.mu.RUnlock()

	if !ok {
		return nil, nil //nolint:nilnil // absent page is reported as not-found, not an error
	}

	ix.breadcrumbMu.Lock()
	defer ix.breadcrumbMu.Unlock()

	if cached, ok := ix.breadcrumbCache[id]; ok {
		return cached, nil
	}

	chain := ix.buildBreadcrumb(page)
	ix.breadcrumbCache[id] = chain

	return chain, nil
}

// buildBreadcrumb walks parent_id links to the root, detecting cycles.
func (ix *Indexer) buildBreadcrumb(page *Page) []*Page {
	visited := map[string]bool{page.ID: true}
	chain := []*Page{page}

	current := page

	for current.ParentID != "" {
		parent, ok := ix.pages[current.ParentID]
		if !ok {
			break
		}

		if visited[parent.ID] {
			slog.Warn("breadcrumb cycle detected, truncating", "page_id", page.ID, "revisits", parent.ID)

			ix.mu.Lock()
			ix.cycleBreaks = append(ix.cycleBreaks, CycleBreak{PageID: page.ID, RevisitsID: parent.ID})
			ix.mu.Unlock()

			break
		}

		visited[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}

	reversed := make([]*Page, len(chain))
	for i, p := range chain {
		reversed[len(chain)-1-i] = p
	}

	return reversed
}

// GetBreadcrumbString returns the breadcrumb's member texts joined by " > ".
func (ix *Indexer) GetBreadcrumbString(id string) (string, error) {
	chain, err := ix.GetBreadcrumb(id)
	if err != nil {
		return "", err
	}

	if chain == nil {
		return "", nil
	}

	texts := make([]string, len(chain))
	for i, p := range chain {
		texts[i] = p.Text
	}

	return strings.Join(texts, " > "), nil
}
