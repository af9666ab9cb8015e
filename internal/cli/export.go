package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger status to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "status.xlsx", "output XLSX file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	history, err := app.ledger().Load(cmd.Context())
	if err != nil {
		return err
	}
	listing, err := app.source().List()
	if err != nil {
		return err
	}
	out, err := export.NewService(app.logger).ExportLedgerXLSX(history, listing)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	cmd.Printf("Wrote %s\n", exportOut)
	return nil
}
