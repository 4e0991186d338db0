package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flows "github.com/albertviilik/pipecat-flows"
	httpadapter "github.com/albertviilik/pipecat-flows/pkg/adapters/http"
	"github.com/albertviilik/pipecat-flows/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the flow over HTTP",
	Long:  `Starts an HTTP server exposing conversations of the configured flow as a REST API with Server-Sent Events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			cfg.Server.HTTPAddr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bot, err := loadBot(ctx)
		if err != nil {
			return err
		}

		opts := []httpadapter.Option{
			httpadapter.WithDefinition(bot.Graph.Definition()),
			httpadapter.WithSeed(bot.Seed),
			httpadapter.WithName(bot.Name),
			httpadapter.WithVersion(flows.Version),
			httpadapter.WithLogger(logger),
		}

		var metrics *observability.Metrics
		if cfg.Metrics.Enabled {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics = observability.NewMetrics(reg)
			opts = append(opts, httpadapter.WithMetrics(reg))
		}

		manager, cleanup, err := newManager(bot, metrics)
		if err != nil {
			return err
		}
		defer cleanup()

		handler, err := httpadapter.NewHandler(manager, opts...)
		if err != nil {
			return fmt.Errorf("build http handler: %w", err)
		}

		srv := &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("serving flow", "flow", bot.Name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return manager.Close(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}
