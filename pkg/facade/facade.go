// Package facade composes the content indexer and search engine behind a
// small set of read-oriented operations, so transports (pkg/api, pkg/cmd)
// depend on capability interfaces instead of concrete storage types.
package facade

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/brdk/as-help-index/pkg/core"
	"github.com/brdk/as-help-index/pkg/prov/htmlpage"
	"github.com/brdk/as-help-index/pkg/repo/search"
)

// Config holds the facade's runtime settings as an immutable value, so a
// Facade can be constructed without a mutable ambient context.
type Config struct {
	HelpRoot     string
	DBPath       string
	ForceRebuild bool
	// ASVersion identifies the Automation Studio release this help content
	// was packaged for. It is not consulted directly; OnlineHelpBaseURL is
	// expected to already bake the version into its path.
	ASVersion          string
	OnlineHelpBaseURL  string
	SearchLimitDefault int
}

// Indexer is the capability the facade needs from pkg/core.Indexer.
type Indexer interface {
	GetPageByID(id string) (*core.Page, error)
	GetPageByHelpID(helpID string) (*core.Page, error)
	GetCategories() ([]*core.Page, error)
	Browse(sectionID string) ([]*core.Page, error)
	GetBreadcrumb(id string) ([]*core.Page, error)
}

// SearchEngine is the capability the facade needs from pkg/repo/search.Engine.
type SearchEngine interface {
	Search(query, category string, limit int) ([]search.Result, uint64, error)
}

// Facade answers search and browse queries over an Indexer and a
// SearchEngine, holding only the configuration and capabilities it needs.
type Facade struct {
	cfg     Config
	indexer Indexer
	engine  SearchEngine
}

// New constructs a Facade. cfg, indexer, and engine are held as-is; the
// facade does not own their lifecycle.
func New(cfg Config, indexer Indexer, engine SearchEngine) *Facade {
	return &Facade{cfg: cfg, indexer: indexer, engine: engine}
}

// SearchResult is a single ranked search hit returned to callers.
type SearchResult struct {
	PageID         string  `json:"page_id"`
	Title          string  `json:"title"`
	FilePath       string  `json:"file_path"`
	HelpID         string  `json:"help_id,omitempty"`
	BreadcrumbPath string  `json:"breadcrumb_path"`
	Category       string  `json:"category"`
	Snippet        string  `json:"snippet"`
	Score          float64 `json:"score"`
}

// SearchResponse is the result of a search: the total match count and the
// page of ranked results actually returned.
type SearchResponse struct {
	Total   uint64         `json:"total"`
	Results []SearchResult `json:"results"`
}

// SearchHelp runs a search, applying cfg.SearchLimitDefault when limit <= 0.
func (f *Facade) SearchHelp(query, category string, limit int) (SearchResponse, error) {
	if limit <= 0 {
		limit = f.cfg.SearchLimitDefault
	}

	hits, total, err := f.engine.Search(query, category, limit)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))

	for _, h := range hits {
		results = append(results, SearchResult{
			PageID:         h.PageID,
			Title:          h.Title,
			FilePath:       h.FilePath,
			HelpID:         h.HelpID,
			BreadcrumbPath: h.BreadcrumbPath,
			Category:       h.Category,
			Snippet:        h.Snippet,
			Score:          h.Score,
		})
	}

	return SearchResponse{Total: total, Results: results}, nil
}

// Category is a browsable entry in the help tree: either a section that can
// be browsed further or a leaf content page.
type Category struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	IsSection     bool   `json:"is_section"`
	OnlineHelpURL string `json:"online_help_url"`
}

// CategoriesResponse is an ordered list of categories, with the total count
// included so callers don't need to len() the slice themselves.
type CategoriesResponse struct {
	Total      int        `json:"total"`
	Categories []Category `json:"categories"`
}

// GetCategories returns the root-level pages as categories.
func (f *Facade) GetCategories() (CategoriesResponse, error) {
	pages, err := f.indexer.GetCategories()
	if err != nil {
		return CategoriesResponse{}, fmt.Errorf("failed to list categories: %w", err)
	}

	cats := make([]Category, 0, len(pages))

	for _, p := range pages {
		cats = append(cats, f.toCategory(p))
	}

	return CategoriesResponse{Total: len(cats), Categories: cats}, nil
}

// BrowseSection returns the direct children of sectionID. A nil response
// (no error) signals not_found, both when sectionID does not exist and when
// it names a page that is not a section.
func (f *Facade) BrowseSection(sectionID string) (*CategoriesResponse, error) {
	children, err := f.indexer.Browse(sectionID)
	if errors.Is(err, core.ErrNotBrowsable) {
		return nil, nil //nolint:nilnil // not_found: sectionID is not a section
	}

	if err != nil {
		return nil, fmt.Errorf("failed to browse section %s: %w", sectionID, err)
	}

	if children == nil {
		return nil, nil //nolint:nilnil // not_found: sectionID does not exist
	}

	cats := make([]Category, 0, len(children))

	for _, p := range children {
		cats = append(cats, f.toCategory(p))
	}

	return &CategoriesResponse{Total: len(cats), Categories: cats}, nil
}

func (f *Facade) toCategory(p *core.Page) Category {
	return Category{
		ID:            p.ID,
		Title:         p.Text,
		IsSection:     p.IsSection,
		OnlineHelpURL: f.onlineHelpURL(p.FilePath),
	}
}

// PageContent is a page's full content, including its extracted text and,
// when requested, its breadcrumb trail.
type PageContent struct {
	PageID        string   `json:"page_id"`
	Title         string   `json:"title"`
	PlainText     string   `json:"plain_text"`
	Breadcrumb    []string `json:"breadcrumb"`
	OnlineHelpURL string   `json:"online_help_url"`
	HelpID        string   `json:"help_id,omitempty"`
	FilePath      string   `json:"file_path"`
}

// GetPageByID returns the page's content, fetching plain_text fresh from
// disk so it never reflects a stale index snapshot. A nil response (no
// error) signals not_found.
func (f *Facade) GetPageByID(pageID string, includeBreadcrumb bool) (*PageContent, error) {
	page, err := f.indexer.GetPageByID(pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up page %s: %w", pageID, err)
	}

	if page == nil {
		return nil, nil //nolint:nilnil // not_found: pageID does not exist
	}

	return f.toPageContent(page, includeBreadcrumb)
}

// GetPageByHelpID returns the page registered under helpID. A nil response
// (no error) signals not_found.
func (f *Facade) GetPageByHelpID(helpID string) (*PageContent, error) {
	page, err := f.indexer.GetPageByHelpID(helpID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up help id %s: %w", helpID, err)
	}

	if page == nil {
		return nil, nil //nolint:nilnil // not_found: helpID is not registered
	}

	return f.toPageContent(page, true)
}

func (f *Facade) toPageContent(page *core.Page, includeBreadcrumb bool) (*PageContent, error) {
	_, plainText := f.extractContent(page)

	var breadcrumb []string

	if includeBreadcrumb {
		chain, err := f.indexer.GetBreadcrumb(page.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to build breadcrumb for page %s: %w", page.ID, err)
		}

		breadcrumb = make([]string, len(chain))
		for i, p := range chain {
			breadcrumb[i] = p.Text
		}
	}

	return &PageContent{
		PageID:        page.ID,
		Title:         page.Text,
		PlainText:     plainText,
		Breadcrumb:    breadcrumb,
		OnlineHelpURL: f.onlineHelpURL(page.FilePath),
		HelpID:        page.HelpID,
		FilePath:      page.FilePath,
	}, nil
}

// extractContent re-reads a page's content file from disk and extracts its
// title and text at request time, rather than serving a stale extraction
// captured at the last index build. A missing or unparsable file yields
// ("", "") and is logged rather than failing the request.
func (f *Facade) extractContent(page *core.Page) (title, plainText string) {
	if page.FilePath == "" {
		return "", ""
	}

	data, err := os.ReadFile(filepath.Join(f.cfg.HelpRoot, page.FilePath)) //nolint:gosec // help root is an operator-configured, trusted directory
	if err != nil {
		slog.Warn("failed to read help content file for page content", "page_id", page.ID, "file_path", page.FilePath, "error", err)
		return "", ""
	}

	return htmlpage.Extract(data)
}

// onlineHelpURL derives the online-help URL for a file path, normalizing
// path separators to forward slashes before prefixing the base URL.
func (f *Facade) onlineHelpURL(filePath string) string {
	if filePath == "" {
		return ""
	}

	return f.cfg.OnlineHelpBaseURL + strings.ReplaceAll(filePath, "\\", "/")
}
