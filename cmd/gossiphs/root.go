package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/73ai/gossiphs/internal/cache"
	"github.com/73ai/gossiphs/internal/config"
	"github.com/73ai/gossiphs/internal/query"
	"github.com/73ai/gossiphs/internal/resolver"
	"github.com/73ai/gossiphs/internal/rule"
)

var (
	graphConfig config.GraphConfig
	cacheDir    string
	logLevel    string
	v           = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "gossiphs",
	Short:   "Cross-file symbol relation graphs from git history and source",
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	graphConfig = config.Defaults()
	config.BindFlags(rootCmd, v, &graphConfig)
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "blob cache directory (empty disables caching)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn, error")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

// buildGraph loads config overrides, opens the optional blob cache, and
// runs the full resolver pipeline, returning the query service ready for
// immediate use by any subcommand.
func buildGraph(cmd *cobra.Command) (*query.Service, error) {
	if err := config.Load(v, &graphConfig); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if graphConfig.ProjectPath == "" {
		graphConfig.ProjectPath = "."
	}

	logger := newLogger()

	registry, err := rule.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("load grammar registry: %w", err)
	}

	var blobCache *cache.Cache
	if cacheDir != "" {
		blobCache, err = cache.Open(cache.DefaultOptions(cacheDir))
		if err != nil {
			return nil, fmt.Errorf("open blob cache: %w", err)
		}
		defer blobCache.Close()
	}

	builder, err := resolver.NewBuilder(graphConfig, registry, blobCache, logger)
	if err != nil {
		return nil, fmt.Errorf("configure builder: %w", err)
	}

	g, rg, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	return query.New(g, rg), nil
}
