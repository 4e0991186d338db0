package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	flows "github.com/albertviilik/pipecat-flows"
	"github.com/albertviilik/pipecat-flows/pkg/adapters/loam"
	"github.com/albertviilik/pipecat-flows/pkg/adapters/process"
	redisadapter "github.com/albertviilik/pipecat-flows/pkg/adapters/redis"
	"github.com/albertviilik/pipecat-flows/pkg/adapters/tmdb"
	"github.com/albertviilik/pipecat-flows/pkg/bots"
	"github.com/albertviilik/pipecat-flows/pkg/bots/movie"
	"github.com/albertviilik/pipecat-flows/pkg/bots/restaurant"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/graph"
	"github.com/albertviilik/pipecat-flows/pkg/observability"
	"github.com/albertviilik/pipecat-flows/pkg/persistence/middleware"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"github.com/albertviilik/pipecat-flows/pkg/session"
)

// loadBot builds the bot selected by the configuration.
func loadBot(ctx context.Context) (*bots.Bot, error) {
	switch {
	case cfg.Flow.Bot == "restaurant":
		return restaurant.New()
	case cfg.Flow.Bot == "movie":
		return movie.New(func() *tmdb.Client {
			opts := []tmdb.Option{tmdb.WithLogger(logger)}
			if cfg.TMDB.BaseURL != "" {
				opts = append(opts, tmdb.WithBaseURL(cfg.TMDB.BaseURL))
			}
			if cfg.TMDB.RateLimit > 0 {
				opts = append(opts, tmdb.WithRateLimit(cfg.TMDB.RateLimit, int(cfg.TMDB.RateLimit)))
			}
			return tmdb.New(cfg.TMDB.APIKey, opts...)
		}, logger)
	case cfg.Flow.File != "":
		g, err := graph.LoadFile(cfg.Flow.File)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(cfg.Flow.File), filepath.Ext(cfg.Flow.File))
		return fromGraph(name, g)
	case cfg.Flow.Dir != "":
		loader, err := loam.Open(cfg.Flow.Dir)
		if err != nil {
			return nil, err
		}
		g, err := graph.Load(ctx, loader)
		if err != nil {
			return nil, err
		}
		return fromGraph(filepath.Base(filepath.Clean(cfg.Flow.Dir)), g)
	default:
		return nil, fmt.Errorf("no flow configured")
	}
}

// fromGraph wraps a loaded graph, binding the configured handler commands.
func fromGraph(name string, g *graph.Store) (*bots.Bot, error) {
	if cfg.Flow.Handlers == "" {
		return bots.FromGraph(name, g, nil), nil
	}
	handlers, err := process.LoadConfig(cfg.Flow.Handlers)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(
		process.WithConfig(handlers),
		process.WithBaseDir(filepath.Dir(cfg.Flow.Handlers)),
		process.WithLogger(logger),
	)
	logger.Debug("bound handler commands", "actions", runner.Names())
	return bots.FromGraph(name, g, nil, runner.RegisterAll), nil
}

// flowOptions returns the options every conversation is built with.
func flowOptions(metrics *observability.Metrics) func(string) []flows.Option {
	return func(string) []flows.Option {
		hooks := observability.LogHooks(logger)
		if metrics != nil {
			hooks = domain.MergeHooks(hooks, metrics.Hooks())
		}
		return []flows.Option{
			flows.WithLogger(logger),
			flows.WithLifecycleHooks(hooks),
		}
	}
}

// newManager creates the session manager, backed by Redis when configured.
// The returned cleanup closes the Redis client.
func newManager(bot *bots.Bot, metrics *observability.Metrics) (*session.Manager, func(), error) {
	opts := []session.Option{session.WithLogger(logger)}
	cleanup := func() {}

	if cfg.Redis.Addr != "" {
		store := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithTTL(cfg.Redis.TTL),
		)
		if err := store.Client().Ping(context.Background()).Err(); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		state, err := sealStore(store)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		opts = append(opts,
			session.WithStore(state),
			session.WithLocker(redisadapter.NewLocker(store.Client(), cfg.Redis.Prefix)),
			session.WithLockTTL(cfg.Redis.LockTTL),
		)
		cleanup = func() { _ = store.Close() }
		logger.Info("using redis for conversation state", "addr", cfg.Redis.Addr)
	}

	return session.NewManager(bot.Factory(flowOptions(metrics)), opts...), cleanup, nil
}

// sealStore wraps store with snapshot encryption when a key is configured.
func sealStore(store ports.StateStore) (ports.StateStore, error) {
	if cfg.Redis.EncryptionKey == "" {
		return store, nil
	}
	active, err := middleware.DecodeKey(cfg.Redis.EncryptionKey)
	if err != nil {
		return nil, err
	}
	var fallback [][]byte
	for _, k := range cfg.Redis.FallbackKeys {
		key, err := middleware.DecodeKey(k)
		if err != nil {
			return nil, err
		}
		fallback = append(fallback, key)
	}
	mw, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	if err != nil {
		return nil, err
	}
	logger.Info("encrypting conversation snapshots at rest")
	return middleware.Chain(store, mw), nil
}
