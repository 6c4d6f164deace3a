package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/san-kum/antsim/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string

	logger *log.Logger
)

func main() {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd := &cobra.Command{
		Use:          "antsim",
		Short:        "batched articulated ant simulation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envOr("ANTSIM_DATA", config.DefaultConfig().OutputDir), "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("ANTSIM_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("ANTSIM_CONFIG"), "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newBenchCmd(),
		newJacobianCmd(),
		newSensitivityCmd(),
		newSweepCmd(),
		newListCmd(),
		newPlotCmd(),
		newSnapshotCmd(),
		newExportCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newAnalyzeCmd(),
		newPhaseCmd(),
		newPresetsCmd(),
		newConfigCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "antsim",
		Level:           lvl,
	})
	log.SetDefault(logger)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
