package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/selection"
)

var (
	runMode         string
	runAll          bool
	runNewAndFailed bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the documents selected by the ledger history",
	Long: `Selects documents from the markdown directory by mode and extracts them
one at a time:
  only_new        documents with no ledger row (default)
  all             every document
  new_and_failed  documents never processed or whose latest outcome failed`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", string(selection.OnlyNew), "selection mode: only_new, all or new_and_failed")
	runCmd.Flags().BoolVar(&runAll, "all", false, "shorthand for --mode all")
	runCmd.Flags().BoolVar(&runNewAndFailed, "new-and-failed", false, "shorthand for --mode new_and_failed")
	runCmd.MarkFlagsMutuallyExclusive("mode", "all", "new-and-failed")
	rootCmd.AddCommand(runCmd)
}

// resolveMode folds the shorthand flags into a mode.
func resolveMode(mode string, all, newAndFailed bool) (selection.Mode, error) {
	switch {
	case all && newAndFailed:
		return "", errors.New("--all and --new-and-failed are mutually exclusive")
	case all:
		return selection.All, nil
	case newAndFailed:
		return selection.NewAndFailed, nil
	}
	return selection.ParseMode(mode)
}

func runRun(cmd *cobra.Command, _ []string) error {
	mode, err := resolveMode(runMode, runAll, runNewAndFailed)
	if err != nil {
		return err
	}
	proc, err := app.processor()
	if err != nil {
		return err
	}

	sum, err := proc.Run(cmd.Context(), mode)
	if sum.Selected == 0 && err == nil {
		cmd.Println("No documents to process.")
		return nil
	}
	cmd.Print(sum.String())
	if err != nil {
		return fmt.Errorf("run stopped: %w", err)
	}
	return nil
}
