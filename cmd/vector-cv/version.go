package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/vector-cv/handlers"
)

// Actual version can be specified in build command.
var version = handlers.Version

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", appName, version)
		},
	}
}
