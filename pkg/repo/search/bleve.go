// Package search provides a persistent Bleve-backed full-text index over
// help page titles, extracted text, and breadcrumb paths.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/brdk/as-help-index/pkg/core"
	"github.com/brdk/as-help-index/pkg/prov/htmlpage"
	"github.com/brdk/as-help-index/pkg/repo/fingerprint"
)

// minPrefixLength is the shortest query token that is matched; shorter
// tokens are dropped per the search contract.
const minPrefixLength = 2

// defaultLimit is used when the caller does not specify one.
const defaultLimit = 20

// snippetMaxBytes bounds the length of a generated snippet.
const snippetMaxBytes = 200

// ErrNotReady is returned by Search/Build after a storage failure has
// closed the engine.
var ErrNotReady = errors.New("search engine not ready")

// searchDocument is the record Bleve indexes for each help page.
type searchDocument struct {
	PageID         string `json:"page_id"`
	Title          string `json:"title"`
	PlainText      string `json:"plain_text"`
	BreadcrumbPath string `json:"breadcrumb_path"`
	FilePath       string `json:"file_path"`
	HelpID         string `json:"help_id"`
	Category       string `json:"category"`
}

// Result is a single ranked search hit.
type Result struct {
	PageID         string
	Title          string
	FilePath       string
	HelpID         string
	BreadcrumbPath string
	Category       string
	Snippet        string
	Score          float64
}

// Breadcrumbs is the capability the engine needs from the Content Indexer
// at build time: a breadcrumb string per page id.
type Breadcrumbs interface {
	GetBreadcrumbString(pageID string) (string, error)
}

// Engine wraps a bleve.Index and implements the Search Engine (C4) contract:
// persistent build with freshness tracking, prefix/conjunction query
// construction, category filtering, and documented tie-break ranking.
type Engine struct {
	index           bleve.Index
	indexPath       string
	fingerprintPath string
	closed          bool
}

// Open opens the index at indexPath, creating it (with the fixed field
// mapping) if it does not exist. fingerprintPath is the sidecar file shared
// with the Content Indexer's freshness check.
func Open(indexPath, fingerprintPath string) (*Engine, error) {
	index, err := bleve.Open(indexPath)
	if err != nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create search index: %w", ErrNotReady, err)
		}
	}

	return &Engine{index: index, indexPath: indexPath, fingerprintPath: fingerprintPath}, nil
}

// Build rebuilds the index from pages if forceRebuild is set, the stored
// fingerprint does not match the current TOC state, or no fingerprint has
// ever been recorded. On success it writes the new fingerprint as the last
// step, so a crash mid-build is retried on next startup. A rebuild discards
// the previous index contents entirely rather than upserting, so pages
// removed from the TOC since the last build do not linger as stale hits.
func (e *Engine) Build(tocPath, helpRoot string, pages []*core.Page, breadcrumbs Breadcrumbs, forceRebuild bool) error {
	if e.closed {
		return ErrNotReady
	}

	current, err := fingerprint.Compute(tocPath, helpRoot)
	if err != nil {
		return fmt.Errorf("failed to compute source fingerprint: %w", err)
	}

	if !forceRebuild {
		stored, err := fingerprint.Load(e.fingerprintPath)
		if err == nil && stored != nil && stored.Matches(current) {
			return nil
		}
	}

	if err := e.resetIndex(); err != nil {
		return err
	}

	batch := e.index.NewBatch()

	for _, p := range pages {
		doc, err := buildSearchDocument(p, helpRoot, breadcrumbs)
		if err != nil {
			return fmt.Errorf("%w: failed to prepare page %s: %w", ErrNotReady, p.ID, err)
		}

		if err := batch.Index(p.ID, doc); err != nil {
			e.closed = true
			return fmt.Errorf("%w: failed to batch page %s: %w", ErrNotReady, p.ID, err)
		}
	}

	if err := e.index.Batch(batch); err != nil {
		e.closed = true
		return fmt.Errorf("%w: failed to commit index batch: %w", ErrNotReady, err)
	}

	if err := fingerprint.Save(e.fingerprintPath, fingerprint.Stored{
		SchemaVersion: fingerprint.SchemaVersion,
		SourceDigest:  current.Digest,
		SourceMtime:   current.Mtime,
		BuiltAt:       time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to persist fingerprint after build: %w", err)
	}

	return nil
}

// resetIndex closes and recreates the underlying Bleve index on disk so a
// rebuild starts from an empty document set.
func (e *Engine) resetIndex() error {
	if err := e.index.Close(); err != nil {
		return fmt.Errorf("failed to close index before rebuild: %w", err)
	}

	if err := os.RemoveAll(e.indexPath); err != nil {
		return fmt.Errorf("failed to remove stale index before rebuild: %w", err)
	}

	index, err := bleve.New(e.indexPath, buildIndexMapping())
	if err != nil {
		e.closed = true
		return fmt.Errorf("%w: failed to recreate search index: %w", ErrNotReady, err)
	}

	e.index = index

	return nil
}

// readHelpFile reads a page's content file, resolved relative to helpRoot.
func readHelpFile(helpRoot, relativePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(helpRoot, relativePath)) //nolint:gosec // help root is an operator-configured, trusted directory
	if err != nil {
		return nil, fmt.Errorf("failed to read help content file: %w", err)
	}

	return data, nil
}

func buildSearchDocument(p *core.Page, helpRoot string, breadcrumbs Breadcrumbs) (searchDocument, error) {
	title := p.Text

	var plainText string

	if p.FilePath != "" {
		data, err := readHelpFile(helpRoot, p.FilePath)
		if err != nil {
			slog.Warn("failed to read help content file, indexing title only", "page_id", p.ID, "file_path", p.FilePath, "error", err)
		} else {
			extractedTitle, extractedText := htmlpage.Extract(data)
			if extractedTitle != "" {
				title = extractedTitle
			}

			plainText = extractedText
		}
	}

	breadcrumbPath, err := breadcrumbs.GetBreadcrumbString(p.ID)
	if err != nil {
		return searchDocument{}, err
	}

	category := breadcrumbPath
	if idx := strings.Index(breadcrumbPath, " > "); idx >= 0 {
		category = breadcrumbPath[:idx]
	}

	return searchDocument{
		PageID:         p.ID,
		Title:          title,
		PlainText:      plainText,
		BreadcrumbPath: breadcrumbPath,
		FilePath:       p.FilePath,
		HelpID:         p.HelpID,
		Category:       category,
	}, nil
}

// Search runs query against the index, restricted to category when
// non-empty, and returns at most limit results ranked by score then the
// documented tie-breakers. An empty or whitespace-only query, or a query
// whose tokens are all shorter than the minimum prefix length, returns an
// empty result set without touching the index.
func (e *Engine) Search(query string, category string, limit int) ([]Result, uint64, error) {
	if e.closed {
		return nil, 0, ErrNotReady
	}

	if limit <= 0 {
		limit = defaultLimit
	}

	tokens := prefixTokens(query)
	if len(tokens) == 0 {
		return nil, 0, nil
	}

	q := buildSearchQuery(tokens, category)

	req := bleve.NewSearchRequestOptions(q, maxFetch(limit), 0, false)
	req.Fields = []string{"page_id", "title", "plain_text", "file_path", "help_id", "breadcrumb_path", "category"}
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("plain_text")

	searchResult, err := e.index.Search(req)
	if err != nil {
		e.closed = true
		return nil, 0, fmt.Errorf("%w: search failed: %w", ErrNotReady, err)
	}

	results := make([]Result, 0, len(searchResult.Hits))

	for _, hit := range searchResult.Hits {
		results = append(results, Result{
			PageID:         fieldString(hit.Fields, "page_id"),
			Title:          fieldString(hit.Fields, "title"),
			FilePath:       fieldString(hit.Fields, "file_path"),
			HelpID:         fieldString(hit.Fields, "help_id"),
			BreadcrumbPath: fieldString(hit.Fields, "breadcrumb_path"),
			Category:       fieldString(hit.Fields, "category"),
			Snippet:        snippetFromFragments(hit.Fragments["plain_text"]),
			Score:          hit.Score,
		})
	}

	rankResults(results, query)

	if len(results) > limit {
		results = results[:limit]
	}

	return results, searchResult.Total, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}

	return ""
}

// maxFetch over-fetches a bounded amount beyond limit so the tie-break
// re-sort has enough candidates to work with without scanning the whole
// index.
func maxFetch(limit int) int {
	const overfetchFactor = 5

	return limit * overfetchFactor
}

// prefixTokens splits query on whitespace and drops tokens shorter than
// minPrefixLength.
func prefixTokens(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))

	for _, f := range fields {
		if len(f) >= minPrefixLength {
			tokens = append(tokens, strings.ToLower(f))
		}
	}

	return tokens
}

// buildSearchQuery builds a conjunction across tokens (logical AND); each
// token is a disjunction of prefix queries against title (boost 10),
// plain_text (boost 5), and breadcrumb_path (boost 2), matching the
// high/medium/low field weights from the search contract. A category term
// filter is conjoined when category is non-empty.
func buildSearchQuery(tokens []string, category string) bleveQuery.Query {
	termQueries := make([]bleveQuery.Query, 0, len(tokens))

	for _, token := range tokens {
		titleQ := bleve.NewPrefixQuery(token)
		titleQ.SetField("title")
		titleQ.SetBoost(10.0)

		contentQ := bleve.NewPrefixQuery(token)
		contentQ.SetField("plain_text")
		contentQ.SetBoost(5.0)

		breadcrumbQ := bleve.NewPrefixQuery(token)
		breadcrumbQ.SetField("breadcrumb_path")
		breadcrumbQ.SetBoost(2.0)

		termQueries = append(termQueries, bleve.NewDisjunctionQuery(titleQ, contentQ, breadcrumbQ))
	}

	var combined bleveQuery.Query
	if len(termQueries) == 1 {
		combined = termQueries[0]
	} else {
		combined = bleve.NewConjunctionQuery(termQueries...)
	}

	if category == "" {
		return combined
	}

	categoryQ := bleve.NewTermQuery(category)
	categoryQ.SetField("category")

	return bleve.NewConjunctionQuery(combined, categoryQ)
}

// rankResults sorts hits by descending score and breaks exactly equal scores
// with the documented tie-breakers: exact case-insensitive title match, then
// title-starts-with, then shorter title, then original order.
func rankResults(results []Result, query string) {
	lowerQuery := strings.ToLower(strings.TrimSpace(query))

	rank := func(r Result) int {
		lowerTitle := strings.ToLower(r.Title)

		switch {
		case lowerTitle == lowerQuery:
			return 0
		case strings.HasPrefix(lowerTitle, lowerQuery):
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		ri, rj := rank(results[i]), rank(results[j])
		if ri != rj {
			return ri < rj
		}

		if len(results[i].Title) != len(results[j].Title) {
			return len(results[i].Title) < len(results[j].Title)
		}

		return false // preserve existing (document) order
	})
}

// snippetFromFragments extracts a bracketed, length-bounded snippet from a
// Bleve highlight fragment on plain_text. If the match was only in title or
// breadcrumb_path, plain_text has no highlighted span (Bleve may still hand
// back a leading unhighlighted fragment), and the snippet is empty rather
// than showing unmatched body text.
func snippetFromFragments(fragments []string) string {
	if len(fragments) == 0 || !strings.Contains(fragments[0], "<mark>") {
		return ""
	}

	return bracketFragment(fragments[0])
}

// bracketFragment strips Bleve's <mark>...</mark> highlight tags, replacing
// them with ASCII brackets, and truncates to snippetMaxBytes centered on
// the first bracketed span.
func bracketFragment(fragment string) string {
	const openTag, closeTag = "<mark>", "</mark>"

	start := strings.Index(fragment, openTag)
	if start == -1 {
		return truncate(fragment, snippetMaxBytes)
	}

	end := strings.Index(fragment, closeTag)
	if end == -1 || end < start {
		return truncate(fragment, snippetMaxBytes)
	}

	plain := strings.NewReplacer(openTag, "[", closeTag, "]").Replace(fragment)
	matchStart := start

	return centerSnippet(plain, matchStart)
}

// centerSnippet returns a window of s up to snippetMaxBytes wide, centered
// on byte offset around.
func centerSnippet(s string, around int) string {
	if len(s) <= snippetMaxBytes {
		return s
	}

	half := snippetMaxBytes / 2

	start := around - half
	if start < 0 {
		start = 0
	}

	end := start + snippetMaxBytes
	if end > len(s) {
		end = len(s)
		start = end - snippetMaxBytes

		if start < 0 {
			start = 0
		}
	}

	return s[start:end]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}

// Close releases the index handle. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}

	e.closed = true

	if err := e.index.Close(); err != nil {
		return fmt.Errorf("failed to close search index: %w", err)
	}

	return nil
}

func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	highWeight := bleve.NewTextFieldMapping()
	highWeight.Store = true
	highWeight.IncludeTermVectors = true

	mediumWeight := bleve.NewTextFieldMapping()
	mediumWeight.Store = true
	mediumWeight.IncludeTermVectors = true

	lowWeight := bleve.NewTextFieldMapping()
	lowWeight.Store = true
	lowWeight.IncludeTermVectors = true

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true

	docMapping.AddFieldMappingsAt("title", highWeight)
	docMapping.AddFieldMappingsAt("plain_text", mediumWeight)
	docMapping.AddFieldMappingsAt("breadcrumb_path", lowWeight)
	docMapping.AddFieldMappingsAt("page_id", keyword)
	docMapping.AddFieldMappingsAt("file_path", keyword)
	docMapping.AddFieldMappingsAt("help_id", keyword)
	docMapping.AddFieldMappingsAt("category", keyword)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}
