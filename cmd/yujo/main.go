package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joacominatel/yujo/internal/infrastructure/config"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yujo",
		Short:         "Ministry report aggregation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newWeeksCmd(),
		newCongregationCmd(),
	)
	return root
}

// newLogger builds the process logger from LOG_LEVEL, LOG_FORMAT and LOG_FILE.
func newLogger() *logging.Logger {
	cfg := config.LoadLog()
	return logging.NewWithOptions(logging.Options{
		Level:    logging.ParseLevel(cfg.Level),
		Format:   cfg.Format,
		FilePath: cfg.File,
	})
}
