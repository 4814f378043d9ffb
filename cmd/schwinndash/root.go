package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahatch/schwinn-dashboard/internal/config"
	"github.com/ahatch/schwinn-dashboard/internal/history"
	"github.com/ahatch/schwinn-dashboard/internal/importer"
	"github.com/ahatch/schwinn-dashboard/internal/logging"
)

var (
	cfgFile string
	debug   bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schwinndash",
	Short: "Import Schwinn bike workout exports and serve a progress dashboard",
	Long: `schwinndash reads the .DAT export files a Schwinn stationary bike writes
to its USB stick, merges the embedded workout summaries into a historical
CSV log, and serves a small web dashboard with Prometheus metrics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(getConfigPath())
		if err != nil {
			return err
		}

		logger, err = logging.New(logging.Options{
			File:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Debug:      debug,
		})
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// newImportService wires the history store and import service from config.
func newImportService() *importer.Service {
	store := history.NewStore(cfg.HistoryFile, logger)
	return importer.NewService(store, logger)
}
