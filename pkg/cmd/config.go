package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/brdk/as-help-index/pkg/api"
)

type appConfig struct {
	Help   HelpConfig   `mapstructure:"help"`
	Search SearchConfig `mapstructure:"search"`
	API    api.Config   `mapstructure:"api"`
}

// HelpConfig holds the location of the vendor help tree.
type HelpConfig struct {
	Root string `mapstructure:"root"`
}

// SearchConfig holds configuration for the search engine and facade:
// where the index lives, whether to force a rebuild, the Automation
// Studio version the help content belongs to, the online-help base URL,
// and the default result limit.
type SearchConfig struct {
	DBPath             string `mapstructure:"db_path"`
	ForceRebuild       bool   `mapstructure:"force_rebuild"`
	ASVersion          string `mapstructure:"as_version"`
	OnlineHelpBaseURL  string `mapstructure:"online_help_base_url"`
	SearchLimitDefault int    `mapstructure:"search_limit_default"`
}

// loadConfig loads the application configuration from the specified file
// path and environment variables. The function returns a pointer to the
// appConfig structure and an error if something goes wrong.
func loadConfig(flags *cmdFlags) (*appConfig, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())

	if flags.ConfigPath != "" {
		v.SetConfigFile(flags.ConfigPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg appConfig

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	slog.Debug("Config loaded", slog.Any("config", cfg))

	return &cfg, nil
}
