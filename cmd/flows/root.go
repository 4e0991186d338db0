package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/albertviilik/pipecat-flows/internal/config"
	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flows",
	Short: "flows drives structured LLM conversations",
	Long: `flows runs conversation flows: graphs of nodes, each with its own prompt and
functions. It serves them over HTTP or MCP, chats with them in the terminal
through an LLM, and validates or draws them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		applyFlowFlags(cmd)
		if h, _ := cmd.Flags().GetString("handlers"); cmd.Flags().Changed("handlers") {
			cfg.Flow.Handlers = h
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// applyFlowFlags lets --bot, --file and --dir replace the configured flow.
func applyFlowFlags(cmd *cobra.Command) {
	for _, name := range []string{"bot", "file", "dir"} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, _ := cmd.Flags().GetString(name)
		cfg.Flow = config.FlowConfig{Handlers: cfg.Flow.Handlers}
		switch name {
		case "bot":
			cfg.Flow.Bot = v
		case "file":
			cfg.Flow.File = v
		case "dir":
			cfg.Flow.Dir = v
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file (ignored when missing)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("bot", "", "Built-in bot to run: restaurant or movie")
	rootCmd.PersistentFlags().String("file", "", "YAML or JSON flow file to run")
	rootCmd.PersistentFlags().String("dir", "", "Directory of markdown flow nodes to run")
	rootCmd.PersistentFlags().String("handlers", "", "YAML or JSON file of commands handling file or directory flow actions")
	rootCmd.MarkFlagsMutuallyExclusive("bot", "file", "dir")
}
