package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/upb/vector-cv/internal/observability"
	"go.uber.org/zap"
)

const appName = "vector-cv"

// Used for flags.
var (
	logLevel  string
	logFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "vector-cv tailors CVs and cover letters to job descriptions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console (default LOG_FORMAT or json)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// initLogger builds the logger from flags, then LOG_LEVEL and LOG_FORMAT
func initLogger() (*zap.Logger, error) {
	level := logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	format := logFormat
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	return observability.NewLogger(level, format)
}
