package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flows "github.com/albertviilik/pipecat-flows"
	mcpadapter "github.com/albertviilik/pipecat-flows/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the flow as an MCP server",
	Long: `Exposes conversations of the configured flow as Model Context Protocol tools.
The stdio transport is meant for local agents; sse listens on an address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		if !cmd.Flags().Changed("addr") {
			addr = cfg.Server.MCPAddr
		}
		baseURL, _ := cmd.Flags().GetString("base-url")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bot, err := loadBot(ctx)
		if err != nil {
			return err
		}
		manager, cleanup, err := newManager(bot, nil)
		if err != nil {
			return err
		}
		defer cleanup()
		defer func() { _ = manager.Close(cmd.Context()) }()

		srv := mcpadapter.NewServer(manager,
			mcpadapter.WithDefinition(bot.Graph.Definition()),
			mcpadapter.WithSeed(bot.Seed),
			mcpadapter.WithVersion(flows.Version),
			mcpadapter.WithLogger(logger),
		)

		switch transport {
		case "stdio":
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			logger.Info("serving mcp over sse", "flow", bot.Name, "addr", addr)
			return srv.ServeSSE(ctx, addr, baseURL)
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().String("addr", ":8081", "Address for the sse transport")
	mcpCmd.Flags().String("base-url", "", "Public base URL for the sse transport")
	rootCmd.AddCommand(mcpCmd)
}
