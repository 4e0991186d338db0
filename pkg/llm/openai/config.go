package openai

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds OpenAI-compatible LLM configuration.
type Config struct {
	APIKey      string   // API key for authentication
	BaseURL     string   // Base URL (default: https://api.openai.com/v1)
	Model       string   // Model name (default: gpt-4o)
	Temperature *float32 // nil = API default
	MaxTokens   int      // 0 = no limit
	MaxRetries  int      // retries for failed requests (default: 1)
}

// NewConfigFromEnv creates Config from environment variables.
// Expected env vars: OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL,
// OPENAI_TEMPERATURE, OPENAI_MAX_TOKENS, OPENAI_MAX_RETRIES.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		Temperature: getEnvFloat32Ptr("OPENAI_TEMPERATURE"),
		MaxTokens:   getEnvIntOrDefault("OPENAI_MAX_TOKENS", 0),
		MaxRetries:  getEnvIntOrDefault("OPENAI_MAX_RETRIES", 1),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
