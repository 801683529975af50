package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/hakimbdev/items-api/internal/config"
	"github.com/hakimbdev/items-api/internal/items"
	"github.com/hakimbdev/items-api/internal/logging"
	"github.com/hakimbdev/items-api/internal/server"
	"github.com/hakimbdev/items-api/internal/stats"
	"github.com/hakimbdev/items-api/internal/watch"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configPath string
	envFile    string
	cfg        *config.Config
	logger     zerolog.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "items-api",
		Short: "Items API - JSON-file backed item catalogue with cached statistics",
		Long: `Items API serves a catalogue of items stored in a single JSON file.
Statistics over the catalogue are cached in memory and refreshed whenever
the file changes on disk.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger = logging.New(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file with ITEMS_* overrides")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().Bool("no-watch", false, "Disable file watching; every stats request recomputes")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for the items file",
		RunE:  runStats,
	}
	statsCmd.Flags().Bool("json", false, "Print the summary as JSON")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configValidateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE:  runConfigValidate,
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}

	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to the config file",
		RunE:  runConfigInit,
	}

	configCmd.AddCommand(configValidateCmd, configShowCmd, configInitCmd)
	rootCmd.AddCommand(serveCmd, statsCmd, configCmd)

	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		cfg.WatchEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store := items.NewStore(cfg.DataPath)
	if err := store.Init(cmd.Context()); err != nil {
		return fmt.Errorf("failed to prepare items file: %w", err)
	}

	engine := stats.NewEngine(store, watch.NewFSNotifier(logger), stats.WithLogger(logger))
	srv := server.NewServer(store, engine, cfg, logger, Version)

	logger.Info().Str("data_path", cfg.DataPath).Int("port", cfg.Port).Msgf("Starting Items API v%s", Version)
	return srv.Run(cmd.Context())
}

func runStats(cmd *cobra.Command, args []string) error {
	list, err := items.NewStore(cfg.DataPath).Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to calculate stats: %w", err)
	}
	summary := stats.Compute(list)
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "\n=== Item Statistics ===\n\n")
	fmt.Fprintf(out, "Total Items:    %d\n", summary.Total)
	fmt.Fprintf(out, "Total Value:    %s\n", stats.FormatMoney(summary.TotalValue))
	fmt.Fprintf(out, "Average Price:  %s\n", stats.FormatMoney(summary.AveragePrice))
	fmt.Fprintf(out, "Price Range:    %s - %s\n", stats.FormatMoney(summary.PriceRange.Min), stats.FormatMoney(summary.PriceRange.Max))
	fmt.Fprintf(out, "\nCategory Breakdown:\n")

	names := make([]string, 0, len(summary.Categories))
	for name := range summary.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := summary.Categories[name]
		fmt.Fprintf(out, "  %-16s %d items (%s)\n", name+":", c.Count, stats.FormatMoney(c.TotalValue))
	}

	fmt.Fprintln(out)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration is INVALID: %v\n", err)
		return err
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s already exists", configPath)
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}

	logger.Info().Str("path", configPath).Msg("Configuration file created")
	return nil
}
