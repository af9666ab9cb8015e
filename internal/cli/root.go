// Package cli wires the acordaos command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

// appContext carries what PersistentPreRunE loaded for the subcommands.
type appContext struct {
	cfg    *common.Config
	logger *slog.Logger
}

var (
	app *appContext

	envFile   string
	verbose   bool
	logFormat string

	// logOutput is where the logger writes; tests swap it.
	logOutput io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "acordaos",
	Short: "Batch extraction of structured records from court decisions",
	Long: `acordaos drives a resumable batch that sends each markdown decision to a
structured-generation model, stores the result next to the source and
records every attempt in a CSV ledger. Re-running picks up where the last
run stopped.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file with settings (default .env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")
}

func loadApp(cmd *cobra.Command, _ []string) error {
	cfg, err := common.LoadConfig(envFile)
	if err != nil {
		return err
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := common.NewLogger(logOutput, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)
	logger.Debug("config.loaded", "command", cmd.Name(), "config", cfg.String())

	app = &appContext{cfg: cfg, logger: logger}
	return nil
}

// Execute runs the command tree under ctx; cancelling ctx stops long runs
// between documents.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
