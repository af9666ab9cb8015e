package cli

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/convert"
)

var (
	convertSrc   string
	convertDst   string
	convertForce bool
	convertRaw   bool
	cleanDir     string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert PDF decisions to markdown with pdftotext",
	Args:  cobra.NoArgs,
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertSrc, "src", "", "PDF directory (default PDF_DIR)")
	convertCmd.Flags().StringVar(&convertDst, "dst", "", "markdown directory (default MARKDOWN_DIR)")
	convertCmd.Flags().BoolVar(&convertForce, "force", false, "overwrite existing markdown")
	convertCmd.Flags().BoolVar(&convertRaw, "raw", false, "keep pdftotext output without cleaning")
	rootCmd.AddCommand(convertCmd)

	cleanCmd.Flags().StringVar(&cleanDir, "dir", "", "markdown directory (default MARKDOWN_DIR)")
	rootCmd.AddCommand(cleanCmd)
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Strip gazette boilerplate from markdown documents in place",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	dir := cleanDir
	if dir == "" {
		dir = app.cfg.Paths.MarkdownDir
	}
	n, err := convert.NewConverter(convert.Config{}, app.logger).CleanDir(cmd.Context(), dir)
	if err != nil {
		return err
	}
	cmd.Printf("Cleaned %d documents in %s\n", n, dir)
	return nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	src, dst := convertSrc, convertDst
	if src == "" {
		src = app.cfg.Paths.PDFDir
	}
	if dst == "" {
		dst = app.cfg.Paths.MarkdownDir
	}
	c := convert.NewConverter(convert.Config{Force: convertForce, Raw: convertRaw}, app.logger)
	rep, err := c.ConvertDir(cmd.Context(), src, dst)
	if err != nil {
		return err
	}
	for _, f := range rep.Files {
		if f.Err != nil {
			cmd.Printf("failed: %s: %v\n", f.PDF, f.Err)
		}
	}
	cmd.Printf("Conversion complete!\n- Converted: %d\n- Skipped: %d\n- Failed: %d\n", rep.Converted, rep.Skipped, rep.Failed)
	return nil
}
