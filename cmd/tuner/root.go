package main

import (
	"Tuner/internal/cache"
	"Tuner/internal/catalog"
	"Tuner/internal/helpers"
	"Tuner/internal/logging"
	"Tuner/internal/selection"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	ApiUrl     string
	LogLevel   string
}

// env carries what every subcommand needs once the root has initialised.
type env struct {
	logger *slog.Logger
	client *catalog.Client
	brands *cache.BrandCache
}

// newMachine builds a selection machine sharing the process-wide brand cache.
func (e *env) newMachine(logger *slog.Logger) *selection.Machine {
	return selection.New(e.client, e.brands, logger)
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	rootCmd := newRootCommand(&Options{}, &env{logger: logger})
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCommand(opts *Options, e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tuner",
		Short:         "tuner finds performance tuning stages for a vehicle",
		Long:          "tuner drills down manufacturer, model, chassis and engine against the tuning catalog API and shows the available stages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := helpers.ReadConfig(opts.ConfigPath); err != nil {
				return err
			}
			cfg := helpers.Load()

			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = opts.LogLevel
			}
			e.logger = logging.NewLogger(os.Stderr, logging.ParseLevel(level))

			baseUrl := cfg.CatalogBaseUrl
			if opts.ApiUrl != "" {
				baseUrl = opts.ApiUrl
			}
			fetcher, err := catalog.NewHTTPFetcher(baseUrl, cfg.CatalogTimeout, e.logger)
			if err != nil {
				return fmt.Errorf("configure catalog client: %w", err)
			}
			e.client = catalog.NewClient(fetcher)
			e.brands = cache.NewBrandCache(e.client)
			e.logger.Debug("catalog client ready", "url", baseUrl)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config.yaml (default ./conf/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.ApiUrl, "api", "", "Catalog API base URL, overrides catalog.base_url")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newShowCommand(e),
		newBrowseCommand(e),
	)
	return cmd
}
