package main

import (
	"fmt"

	"github.com/albertviilik/pipecat-flows/internal/validator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the flow graph",
	Long: `Checks that every node is reachable from the initial node, that every node
can still reach an end, and that every function has a registered handler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, err := loadBot(cmd.Context())
		if err != nil {
			return err
		}

		var handlers []string
		if bot.Handlers != nil {
			reg, closer, err := bot.Handlers(cmd.Context())
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}
			handlers = reg.Names()
		}

		if err := validator.ValidateGraph(bot.Graph.Definition(), handlers); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s flow %q is valid (%d nodes)\n",
			color.GreenString("✓"), bot.Name, len(bot.Graph.IDs()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
