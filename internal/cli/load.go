package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/acordao-extractor/internal/repository"
)

var (
	loadDB    string
	loadDir   string
	loadFile  string
	loadFresh bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load structured artifacts into SQLite or PostgreSQL",
	Long: `Inserts every current structured artifact (or a single file) into the
relational store. Reloading a document replaces its previous rows. Backups
and _temp artifacts are ignored. --fresh moves an existing SQLite file aside
with a versioned name first.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadDB, "db", "", "database URL or SQLite path (default DB_URL)")
	loadCmd.Flags().StringVar(&loadDir, "dir", "", "artifact directory (default ARTIFACT_DIR)")
	loadCmd.Flags().StringVar(&loadFile, "file", "", "load a single JSON file")
	loadCmd.Flags().BoolVar(&loadFresh, "fresh", false, "back up an existing SQLite file and start empty")
	loadCmd.MarkFlagsMutuallyExclusive("dir", "file")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dbURL := loadDB
	if dbURL == "" {
		dbURL = app.cfg.Database.URL
	}

	if loadFresh {
		_, _, path := repository.Target(dbURL)
		if path == "" {
			return errors.New("--fresh only applies to SQLite databases")
		}
		backup, err := repository.RetireFile(path, app.logger)
		if err != nil {
			return err
		}
		if backup != "" {
			cmd.Printf("Existing database moved to %s\n", backup)
		}
	}

	db, err := repository.Open(ctx, repository.Config{URL: dbURL, DialTimeout: app.cfg.Database.DialTimeout}, app.logger)
	if err != nil {
		return err
	}
	defer db.Close()
	loader := repository.NewLoader(db, app.logger)

	if loadFile != "" {
		res := loader.LoadFile(ctx, loadFile)
		if res.Err != nil {
			return res.Err
		}
		cmd.Printf("Loaded %s (%d items, %d excerpts)\n", res.Name, res.Items, res.Excerpts)
		return nil
	}

	dir := loadDir
	if dir == "" {
		dir = app.cfg.Paths.ArtifactDir
	}
	rep, err := loader.LoadDir(ctx, dir)
	if err != nil {
		return err
	}
	for _, f := range rep.Files {
		if f.Err != nil {
			cmd.Printf("failed: %s: %v\n", f.File, f.Err)
		}
	}
	cmd.Printf("Load complete!\n- Loaded: %d\n- Failed: %d\n", rep.Loaded, rep.Failed)
	if rep.Loaded == 0 && rep.Failed > 0 {
		return fmt.Errorf("no artifact loaded from %s", dir)
	}
	return nil
}
