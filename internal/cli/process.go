package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var processTest bool

var processCmd = &cobra.Command{
	Use:   "process <document.md>",
	Short: "Process one document regardless of its history",
	Long: `Extracts a single document from the markdown directory. With --test the
artifacts get a _temp suffix and nothing is written to the ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processTest, "test", false, "write _temp artifacts and skip the ledger")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	proc, err := app.processor()
	if err != nil {
		return err
	}
	doc := filepath.Base(args[0])
	res, err := proc.ProcessOne(cmd.Context(), doc, processTest)
	if err != nil {
		return err
	}

	cmd.Printf("%s: %s\n", res.DocumentID, res.Outcome)
	if res.ArtifactRef != "" {
		cmd.Printf("- Artifact: %s\n", filepath.Join(app.cfg.Paths.ArtifactDir, res.ArtifactRef))
	}
	if res.RawSlot != "" {
		cmd.Printf("- Raw response: %s\n", filepath.Join(app.cfg.Paths.ArtifactDir, res.RawSlot))
	}
	if res.Err != nil {
		cmd.Printf("- Error: %v\n", res.Err)
	}
	if res.Outcome.IsFailed() {
		return fmt.Errorf("%s: %s", res.DocumentID, res.Outcome)
	}
	return nil
}
