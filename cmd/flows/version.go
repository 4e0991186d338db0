package main

import (
	"fmt"

	flows "github.com/albertviilik/pipecat-flows"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flows v%s\n", flows.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
