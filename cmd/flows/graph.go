package main

import (
	"encoding/json"
	"fmt"

	"github.com/albertviilik/pipecat-flows/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the flow graph",
	Long:  `Prints the flow as a Mermaid flowchart, or as its JSON definition with --format json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := loadBot(cmd.Context())
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			fmt.Fprintln(cmd.OutOrStdout(), graph.GenerateMermaid(bot.Graph.Definition(), nil))
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(bot.Graph.Definition())
		default:
			return fmt.Errorf("unknown format %q (want mermaid or json)", format)
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().String("format", "mermaid", "Output format: mermaid or json")
	rootCmd.AddCommand(graphCmd)
}
