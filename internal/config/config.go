// Package config loads the runtime configuration of the flows binary.
// Files are YAML with ${VAR} expansion; durations are written as strings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/albertviilik/pipecat-flows/internal/logging"
	"github.com/albertviilik/pipecat-flows/pkg/persistence/middleware"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Bots that can be served without a flow file.
var knownBots = map[string]bool{"restaurant": true, "movie": true}

// Config represents the complete flows configuration.
type Config struct {
	Flow    FlowConfig    `yaml:"flow"`
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Redis   RedisConfig   `yaml:"redis"`
	TMDB    TMDBConfig    `yaml:"tmdb"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// FlowConfig selects the flow to run: a built-in bot, a YAML/JSON flow
// file or a directory of markdown nodes.
type FlowConfig struct {
	Bot  string `yaml:"bot"`
	File string `yaml:"file"`
	Dir  string `yaml:"dir"`

	// Handlers is a file of commands bound to the actions of a file or
	// directory flow. Unbound actions acknowledge their calls.
	Handlers string `yaml:"handlers"`
}

// ServerConfig holds server address and timing configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	MCPAddr  string `yaml:"mcp_addr"`

	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

// LLMConfig selects the provider used by the chat command.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Region   string `yaml:"region"`
	MaxSteps int    `yaml:"max_steps"`
}

// RedisConfig enables the shared snapshot store and distributed locks.
// An empty address keeps conversations in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`

	TTL        time.Duration `yaml:"-"`
	TTLRaw     string        `yaml:"ttl"`
	LockTTL    time.Duration `yaml:"-"`
	LockTTLRaw string        `yaml:"lock_ttl"`

	// EncryptionKey, base64 encoded, seals snapshots at rest with AES-256.
	// FallbackKeys still decrypt snapshots sealed before a rotation.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
}

// TMDBConfig configures the movie bot backend.
type TMDBConfig struct {
	APIKey    string  `yaml:"api_key"`
	BaseURL   string  `yaml:"base_url"`
	RateLimit float64 `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Flow: FlowConfig{Bot: "restaurant"},
		Server: ServerConfig{
			HTTPAddr:           ":8080",
			MCPAddr:            ":8081",
			ShutdownTimeoutRaw: "10s",
		},
		LLM:     LLMConfig{Provider: "openai", MaxSteps: 10},
		Redis:   RedisConfig{Prefix: "flows:", TTLRaw: "24h", LockTTLRaw: "30s"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads the configuration file at path over the defaults. An empty
// path uses the defaults only. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads variables from .env files into the environment without
// overriding variables already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the value of the variable.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TMDB_API_KEY"); v != "" && c.TMDB.APIKey == "" {
		c.TMDB.APIKey = v
	}
	if v := os.Getenv("FLOWS_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("FLOWS_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("FLOWS_ENCRYPTION_KEY"); v != "" {
		c.Redis.EncryptionKey = v
	}
	if v := os.Getenv("FLOWS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseDurations(cfg *Config) error {
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"redis.ttl", cfg.Redis.TTLRaw, &cfg.Redis.TTL},
		{"redis.lock_ttl", cfg.Redis.LockTTLRaw, &cfg.Redis.LockTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// Validate checks that the configuration is usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	sources := 0
	for _, s := range []string{c.Flow.Bot, c.Flow.File, c.Flow.Dir} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of flow.bot, flow.file and flow.dir must be set")
	}
	if c.Flow.Bot != "" && !knownBots[c.Flow.Bot] {
		return fmt.Errorf("unknown bot %q", c.Flow.Bot)
	}
	if c.Flow.Bot == "movie" && c.TMDB.APIKey == "" {
		return errors.New("tmdb.api_key is required by the movie bot (or set TMDB_API_KEY)")
	}

	switch c.LLM.Provider {
	case "openai":
	case "bedrock":
		if c.LLM.Model == "" {
			return errors.New("llm.model is required for bedrock")
		}
	default:
		return fmt.Errorf("unknown llm provider %q (want openai or bedrock)", c.LLM.Provider)
	}
	if c.LLM.MaxSteps < 1 {
		return errors.New("llm.max_steps must be positive")
	}

	for _, k := range append([]string{c.Redis.EncryptionKey}, c.Redis.FallbackKeys...) {
		if k == "" {
			continue
		}
		if _, err := middleware.DecodeKey(k); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
