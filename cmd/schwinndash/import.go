package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahatch/schwinn-dashboard/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import [file.DAT]",
	Short: "Import a bike export into the history log",
	Long: `Parses the workout blocks embedded in a .DAT export and merges them
into the historical CSV. With no argument the configured dat_file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path := cfg.DATFile
	if len(args) == 1 {
		path = args[0]
	}

	svc := newImportService()
	res, err := svc.ImportDATFile(path, importer.SourceCLI)
	if err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}

	fmt.Printf("Imported %d workouts from %s (%d malformed blocks skipped), history now has %d rows.\n",
		res.Imported, path, res.Skipped, res.Rows)
	return nil
}
