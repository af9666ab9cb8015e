package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/monitor"
)

var (
	monitorInterval time.Duration
	monitorWatch    bool
	monitorOnce     bool
	monitorPlain    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show batch progress until interrupted",
	Long: `Reads the ledger, the markdown directory and the error log on a fixed
interval and redraws a dashboard: counts per latest outcome, mean pace,
estimated time left and the most recent error. It never writes.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "refresh interval (default MONITOR_INTERVAL)")
	monitorCmd.Flags().BoolVar(&monitorWatch, "watch", false, "also refresh when the ledger changes")
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "draw once and exit")
	monitorCmd.Flags().BoolVar(&monitorPlain, "plain", false, "no colors and no screen clearing")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg := app.cfg
	interval := cfg.Monitor.Interval
	if monitorInterval > 0 {
		interval = monitorInterval
	}
	mc := monitor.Config{
		Settings: monitor.Settings{
			SourceDir: cfg.Paths.MarkdownDir,
			Ledger:    cfg.Paths.LedgerFile,
			ErrorLog:  cfg.Paths.ErrorLog,
			Model:     cfg.LLM.Model,
			Interval:  interval,
		},
		MaxGap: cfg.Monitor.MaxGap,
		Clear:  !monitorPlain && !monitorOnce,
		Plain:  monitorPlain,
		Out:    cmd.OutOrStdout(),
		Logger: app.logger,
	}
	if monitorWatch {
		mc.Watch = []string{cfg.Paths.LedgerFile}
	}
	m := monitor.New(app.source(), app.ledger(), app.journal(), mc)
	if monitorOnce {
		return m.Draw(cmd.Context())
	}
	return m.Run(cmd.Context())
}
