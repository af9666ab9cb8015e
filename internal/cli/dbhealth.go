package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/repository"
)

var dbhealthDB string

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Check the relational store: connect, migrate and count decisions",
	Args:  cobra.NoArgs,
	RunE:  runDBHealth,
}

func init() {
	dbhealthCmd.Flags().StringVar(&dbhealthDB, "db", "", "database URL or SQLite path (default DB_URL)")
	rootCmd.AddCommand(dbhealthCmd)
}

func runDBHealth(cmd *cobra.Command, _ []string) error {
	dbURL := dbhealthDB
	if dbURL == "" {
		dbURL = app.cfg.Database.URL
	}
	db, err := repository.Open(cmd.Context(), repository.Config{URL: dbURL, DialTimeout: app.cfg.Database.DialTimeout}, app.logger)
	if err != nil {
		cmd.Printf("DB health: FAIL (%v)\n", err)
		return err
	}
	defer db.Close()

	if err := db.HealthCheck(cmd.Context(), time.Second); err != nil {
		cmd.Printf("DB health: FAIL (%v)\n", err)
		return err
	}
	n, err := repository.NewLoader(db, app.logger).CountDecisions(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("DB health: OK (%s)\n- Decisions: %d\n", db.Dialect(), n)
	return nil
}
