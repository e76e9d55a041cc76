package cmd

import (
	"context"
	"fmt"

	"github.com/brdk/as-help-index/pkg/api"
	"github.com/brdk/as-help-index/pkg/core"
	"github.com/brdk/as-help-index/pkg/facade"
	"github.com/brdk/as-help-index/pkg/repo/search"
)

// fingerprintPath derives the sidecar path for a given search index path.
func fingerprintPath(dbPath string) string {
	return dbPath + ".fingerprint.json"
}

// buildServices wires the content indexer, search engine, and facade from
// configuration: parse the TOC, open-or-rebuild the search index, and
// compose the facade over both.
func buildServices(cfg *appConfig) (*core.Indexer, *search.Engine, *facade.Facade, error) {
	indexer := core.New(cfg.Help.Root, fingerprintPath(cfg.Search.DBPath))

	if err := indexer.ParseXMLStructure(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse toc: %w", err)
	}

	engine, err := search.Open(cfg.Search.DBPath, fingerprintPath(cfg.Search.DBPath))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open search index: %w", err)
	}

	allPages, err := indexer.AllPages()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list pages for build: %w", err)
	}

	if err := engine.Build(indexer.TOCPath(), cfg.Help.Root, allPages, indexer, cfg.Search.ForceRebuild); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build search index: %w", err)
	}

	f := facade.New(facade.Config{
		HelpRoot:           cfg.Help.Root,
		DBPath:             cfg.Search.DBPath,
		ForceRebuild:       cfg.Search.ForceRebuild,
		ASVersion:          cfg.Search.ASVersion,
		OnlineHelpBaseURL:  cfg.Search.OnlineHelpBaseURL,
		SearchLimitDefault: cfg.Search.SearchLimitDefault,
	}, indexer, engine)

	return indexer, engine, f, nil
}

// RunCommand initializes the logger, loads configuration, builds the
// indexer/search/facade stack, and starts the API service.
func RunCommand(ctx context.Context, flags *cmdFlags) error {
	if err := initLogger(flags); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	_, engine, f, err := buildServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	defer engine.Close()

	apiSvc, err := api.New(cfg.API, f)
	if err != nil {
		return fmt.Errorf("failed to create API service: %w", err)
	}

	if err := apiSvc.Run(ctx); err != nil {
		return fmt.Errorf("failed to run API service: %w", err)
	}

	return nil
}
