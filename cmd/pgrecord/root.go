package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pgrecord/pgrecord/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgrecord",
		Short:         "Manage Postgres composite types from a YAML schema file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	root.AddCommand(newSQLCmd())
	root.AddCommand(newApplyCmd())
	return root
}

func newLogger() zerolog.Logger {
	return logger.New(&logger.Config{Level: logLevel, Format: logFormat})
}
