package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the merged history log to a file or stdout",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	svc := newImportService()
	csvBytes, err := svc.ExportCSV()
	if err != nil {
		return fmt.Errorf("exporting history: %w", err)
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(csvBytes)
		return err
	}
	return os.WriteFile(exportOut, csvBytes, 0o644)
}
