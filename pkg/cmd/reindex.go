package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReindexCmd forces a search index rebuild, regardless of the stored
// fingerprint, and exits. This is its own subcommand rather than only a
// config flag so an operator can force a rebuild without restarting the
// server under a different config.
func newReindexCmd(flags *cmdFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Force a full search index rebuild",
		Long:  "Rebuild the search index from the help content TOC regardless of the stored source fingerprint.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := initLogger(flags); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			cfg.Search.ForceRebuild = true

			_, engine, _, err := buildServices(cfg)
			if err != nil {
				return fmt.Errorf("failed to rebuild search index: %w", err)
			}

			return engine.Close()
		},
	}
}
