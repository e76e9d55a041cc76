package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brdk/as-help-index/pkg/facade"
)

type fakeFacade struct {
	searchResp     facade.SearchResponse
	searchErr      error
	categoriesResp facade.CategoriesResponse
	categoriesErr  error
	sections       map[string]*facade.CategoriesResponse
	pages          map[string]*facade.PageContent
	pagesByHelpID  map[string]*facade.PageContent
}

func (f *fakeFacade) SearchHelp(_, _ string, _ int) (facade.SearchResponse, error) {
	return f.searchResp, f.searchErr
}

func (f *fakeFacade) GetCategories() (facade.CategoriesResponse, error) {
	return f.categoriesResp, f.categoriesErr
}

func (f *fakeFacade) BrowseSection(sectionID string) (*facade.CategoriesResponse, error) {
	return f.sections[sectionID], nil
}

func (f *fakeFacade) GetPageByID(pageID string, _ bool) (*facade.PageContent, error) {
	return f.pages[pageID], nil
}

func (f *fakeFacade) GetPageByHelpID(helpID string) (*facade.PageContent, error) {
	return f.pagesByHelpID[helpID], nil
}

func newTestAPI(t *testing.T, f Facade) *API {
	t.Helper()

	a, err := New(Config{Listen: ":0"}, f)
	require.NoError(t, err)

	return a
}

func TestHealthCheck_ReturnsOK(t *testing.T) {
	a := newTestAPI(t, &fakeFacade{})

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ok", rec.Body.String())
}

func TestSearch_ReturnsJSONResults(t *testing.T) {
	f := &fakeFacade{searchResp: facade.SearchResponse{
		Total: 1,
		Results: []facade.SearchResult{{PageID: "a", Title: "Alpha", Snippet: "[Alpha] overview"}},
	}}
	a := newTestAPI(t, f)

	req := httptest.NewRequest(http.MethodGet, "/search?q=alpha", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body facade.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body.Total)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "a", body.Results[0].PageID)
}

func TestSearch_HTMLFormatSanitizesSnippet(t *testing.T) {
	f := &fakeFacade{searchResp: facade.SearchResponse{
		Total:   1,
		Results: []facade.SearchResult{{PageID: "a", Snippet: "before [needle] <script>alert(1)</script> after"}},
	}}
	a := newTestAPI(t, f)

	req := httptest.NewRequest(http.MethodGet, "/search?q=needle&format=html", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body searchResponseHTMLBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Contains(t, body.Results[0].SnippetHTML, "<mark>needle</mark>")
	assert.NotContains(t, body.Results[0].SnippetHTML, "<script>")
}

func TestSearch_PropagatesFailureAsInternalServerError(t *testing.T) {
	a := newTestAPI(t, &fakeFacade{searchErr: errors.New("storage failure")})

	req := httptest.NewRequest(http.MethodGet, "/search?q=alpha", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCategories_ReturnsJSON(t *testing.T) {
	f := &fakeFacade{categoriesResp: facade.CategoriesResponse{Total: 1, Categories: []facade.Category{{ID: "hw", Title: "Hardware"}}}}
	a := newTestAPI(t, f)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body facade.CategoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
}

func TestBrowseSection_NotFoundReturns404(t *testing.T) {
	a := newTestAPI(t, &fakeFacade{sections: map[string]*facade.CategoriesResponse{}})

	req := httptest.NewRequest(http.MethodGet, "/sections/unknown", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBrowseSection_Found(t *testing.T) {
	f := &fakeFacade{sections: map[string]*facade.CategoriesResponse{
		"motion": {Total: 1, Categories: []facade.Category{{ID: "mapp"}}},
	}}
	a := newTestAPI(t, f)

	req := httptest.NewRequest(http.MethodGet, "/sections/motion", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPageByID_NotFoundReturns404(t *testing.T) {
	a := newTestAPI(t, &fakeFacade{pages: map[string]*facade.PageContent{}})

	req := httptest.NewRequest(http.MethodGet, "/pages/unknown", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPageByID_Found(t *testing.T) {
	f := &fakeFacade{pages: map[string]*facade.PageContent{
		"x20di9371_page": {PageID: "x20di9371_page", Title: "X20DI9371"},
	}}
	a := newTestAPI(t, f)

	req := httptest.NewRequest(http.MethodGet, "/pages/x20di9371_page", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body facade.PageContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "X20DI9371", body.Title)
}

func TestGetPageByHelpID_Found(t *testing.T) {
	f := &fakeFacade{pagesByHelpID: map[string]*facade.PageContent{
		"12345": {PageID: "x20di9371_page", HelpID: "12345"},
	}}
	a := newTestAPI(t, f)

	req := httptest.NewRequest(http.MethodGet, "/pages/by-help-id/12345", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPageByHelpID_NotFoundReturns404(t *testing.T) {
	a := newTestAPI(t, &fakeFacade{pagesByHelpID: map[string]*facade.PageContent{}})

	req := httptest.NewRequest(http.MethodGet, "/pages/by-help-id/99999", nil)
	rec := httptest.NewRecorder()

	a.newMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
