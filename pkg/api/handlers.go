package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brdk/as-help-index/pkg/facade"
)

// healthCheck verifies the server is running and returns 200 OK.
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("Ok")); err != nil {
		slog.ErrorContext(r.Context(), "failed to write health check response", "error", err)
	}
}

// search handles GET /search?q=&category=&limit=&format=.
// With format=html each result's plain-text snippet is replaced by a
// snippet_html field holding sanitized HTML with the matched span wrapped in
// <mark>, for callers embedding results directly into a browser-rendered
// help widget; the response is still JSON. The default response is plain
// JSON matching the facade's SearchResult shape verbatim.
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	limit := parseIntOr(r.URL.Query().Get("limit"), 0)

	resp, err := a.facade.SearchHelp(query, category, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "search failed", "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)

		return
	}

	if r.URL.Query().Get("format") == "html" {
		writeJSON(w, r, searchResponseHTML(resp))
		return
	}

	writeJSON(w, r, resp)
}

// searchResultHTML mirrors facade.SearchResult but carries a pre-rendered,
// sanitized HTML snippet instead of the plain-text one.
type searchResultHTML struct {
	PageID         string  `json:"page_id"`
	Title          string  `json:"title"`
	FilePath       string  `json:"file_path"`
	HelpID         string  `json:"help_id,omitempty"`
	BreadcrumbPath string  `json:"breadcrumb_path"`
	Category       string  `json:"category"`
	SnippetHTML    string  `json:"snippet_html"`
	Score          float64 `json:"score"`
}

type searchResponseHTMLBody struct {
	Total   uint64              `json:"total"`
	Results []searchResultHTML `json:"results"`
}

// searchResponseHTML projects a facade.SearchResponse into the
// HTML-snippet variant, sanitizing each result's snippet with bluemonday.
func searchResponseHTML(resp facade.SearchResponse) searchResponseHTMLBody {
	results := make([]searchResultHTML, 0, len(resp.Results))

	for _, r := range resp.Results {
		results = append(results, searchResultHTML{
			PageID:         r.PageID,
			Title:          r.Title,
			FilePath:       r.FilePath,
			HelpID:         r.HelpID,
			BreadcrumbPath: r.BreadcrumbPath,
			Category:       r.Category,
			SnippetHTML:    string(snippetHTML(r.Snippet)),
			Score:          r.Score,
		})
	}

	return searchResponseHTMLBody{Total: resp.Total, Results: results}
}

// categories handles GET /categories.
func (a *API) categories(w http.ResponseWriter, r *http.Request) {
	resp, err := a.facade.GetCategories()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list categories", "error", err)
		http.Error(w, "failed to list categories", http.StatusInternalServerError)

		return
	}

	writeJSON(w, r, resp)
}

// browseSection handles GET /sections/{id}.
func (a *API) browseSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	resp, err := a.facade.BrowseSection(id)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to browse section", "error", err, "section_id", id)
		http.Error(w, "failed to browse section", http.StatusInternalServerError)

		return
	}

	if resp == nil {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, r, resp)
}

// getPageByID handles GET /pages/{id}.
func (a *API) getPageByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	page, err := a.facade.GetPageByID(id, true)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get page", "error", err, "page_id", id)
		http.Error(w, "failed to get page", http.StatusInternalServerError)

		return
	}

	if page == nil {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, r, page)
}

// getPageByHelpID handles GET /pages/by-help-id/{id}.
func (a *API) getPageByHelpID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	page, err := a.facade.GetPageByHelpID(id)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get page by help id", "error", err, "help_id", id)
		http.Error(w, "failed to get page", http.StatusInternalServerError)

		return
	}

	if page == nil {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, r, page)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}

	return n
}
