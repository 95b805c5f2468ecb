package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/astarworks/flextable"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the flextable version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "flextable v%s\nmodule: %s\n", version, modulePath)
		return nil
	},
}
