// Package api provides a thin HTTP surface over pkg/facade: search,
// category browsing, page lookup, and a liveness probe.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brdk/as-help-index/pkg/facade"
)

const (
	defaultTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Config holds the configuration for the API server.
type Config struct {
	Listen string `mapstructure:"listen"`
}

// Facade is the capability the API needs from pkg/facade.Facade.
type Facade interface {
	SearchHelp(query, category string, limit int) (facade.SearchResponse, error)
	GetCategories() (facade.CategoriesResponse, error)
	BrowseSection(sectionID string) (*facade.CategoriesResponse, error)
	GetPageByID(pageID string, includeBreadcrumb bool) (*facade.PageContent, error)
	GetPageByHelpID(helpID string) (*facade.PageContent, error)
}

// API is the HTTP server exposing the facade to external callers.
type API struct {
	facade Facade
	config Config
}

// New creates a new API instance. It validates the configuration and
// returns an error if the listen address is not specified.
func New(cfg Config, f Facade) (*API, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("listen address must be specified")
	}

	return &API{config: cfg, facade: f}, nil
}

// Run starts the API server and blocks until ctx is cancelled, at which
// point in-flight requests are given a grace period to complete before the
// server is forcefully closed.
func (a *API) Run(ctx context.Context) error {
	s := &http.Server{
		Addr:              a.config.Listen,
		ReadHeaderTimeout: defaultTimeout,
		WriteTimeout:      defaultTimeout,
		Handler:           a.newMux(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.WarnContext(ctx, "shutting down API server")

		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed, forcing close", "error", err)

			if closeErr := s.Close(); closeErr != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", closeErr)
			}
		}
	}()

	if err := s.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}
