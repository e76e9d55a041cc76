package api

import (
	"net/http"

	"github.com/brdk/as-help-index/pkg/api/middleware"
)

// newMux creates and returns a new HTTP ServeMux with the API's routes
// registered.
func (a *API) newMux() *http.ServeMux {
	mux := http.NewServeMux()

	withReqID := middleware.NewReqID()

	mux.Handle("GET /livez", middleware.Use(a.healthCheck, withReqID))
	mux.Handle("GET /search", middleware.Use(a.search, withReqID))
	mux.Handle("GET /categories", middleware.Use(a.categories, withReqID))
	mux.Handle("GET /sections/{id}", middleware.Use(a.browseSection, withReqID))
	mux.Handle("GET /pages/{id}", middleware.Use(a.getPageByID, withReqID))
	mux.Handle("GET /pages/by-help-id/{id}", middleware.Use(a.getPageByHelpID, withReqID))

	return mux
}
