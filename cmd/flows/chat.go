package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flows "github.com/albertviilik/pipecat-flows"
	"github.com/albertviilik/pipecat-flows/internal/presentation/tui"
	"github.com/albertviilik/pipecat-flows/pkg/llm"
	"github.com/albertviilik/pipecat-flows/pkg/llm/bedrock"
	"github.com/albertviilik/pipecat-flows/pkg/llm/openai"
	"github.com/albertviilik/pipecat-flows/pkg/observability"
	"github.com/albertviilik/pipecat-flows/pkg/runner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the flow in the terminal",
	Long: `Runs one conversation in the terminal. An LLM (OpenAI-compatible or Bedrock)
answers the user and calls the functions of the current node.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if p, _ := cmd.Flags().GetString("provider"); cmd.Flags().Changed("provider") {
			cfg.LLM.Provider = p
		}
		if m, _ := cmd.Flags().GetString("model"); cmd.Flags().Changed("model") {
			cfg.LLM.Model = m
		}
		noFarewell, _ := cmd.Flags().GetBool("no-farewell")

		provider, err := newProvider(ctx)
		if err != nil {
			return err
		}
		bot, err := loadBot(ctx)
		if err != nil {
			return err
		}

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		consoleOpts := []runner.ConsoleOption{
			runner.WithSystemLabel(color.New(color.FgHiBlack, color.Bold).Sprint),
		}
		if interactive {
			width := 80
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
				width = w - 4
			}
			consoleOpts = append(consoleOpts, runner.WithRenderer(tui.NewRenderer(width)))
			tui.PrintBanner(os.Stdout, fmt.Sprintf("%s flow, %s", bot.Name, provider.Name()))
		}
		console := runner.NewConsole(os.Stdin, os.Stdout, consoleOpts...)

		flow, closer, err := bot.NewFlow(ctx,
			flows.WithConversationID(uuid.NewString()),
			flows.WithLogger(logger),
			flows.WithSpeaker(console),
			flows.WithLifecycleHooks(observability.LogHooks(logger)),
		)
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer.Close()
		}
		if err := flow.Initialize(ctx, bot.Seed); err != nil {
			return err
		}

		r := runner.New(flow, provider,
			runner.WithSpeaker(console),
			runner.WithLogger(logger),
			runner.WithMaxSteps(cfg.LLM.MaxSteps),
			runner.WithProviderObserver(logProvider),
			runner.WithFarewell(!noFarewell),
		)
		return runner.Chat(ctx, r, console)
	},
}

// newProvider builds the configured LLM provider.
func newProvider(ctx context.Context) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		oc, err := openai.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if cfg.LLM.Model != "" {
			oc.Model = cfg.LLM.Model
		}
		return openai.NewClient(oc, openai.WithLogger(logger))
	case "bedrock":
		return bedrock.NewClientFromConfig(ctx, cfg.LLM.Region, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func logProvider(provider string, d time.Duration, err error) {
	if err != nil {
		logger.Warn("llm completion failed", "provider", provider, "duration", d, "err", err)
		return
	}
	logger.Debug("llm completion", "provider", provider, "duration", d)
}

func init() {
	chatCmd.Flags().String("provider", "openai", "LLM provider: openai or bedrock")
	chatCmd.Flags().String("model", "", "Model name, overriding the provider default")
	chatCmd.Flags().Bool("no-farewell", false, "Skip the closing LLM reply when the flow ends")
	rootCmd.AddCommand(chatCmd)
}
