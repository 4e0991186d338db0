package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes one external command bound to an action name.
type Config struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile is the structure of a handlers file.
type ConfigFile struct {
	Handlers []Config `yaml:"handlers" json:"handlers"`
}

// LoadConfig reads a handlers file (YAML, or JSON by extension) and
// returns the commands keyed by action name.
func LoadConfig(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handlers file: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse handlers file %s: %w", path, err)
	}

	out := make(map[string]Config, len(cfg.Handlers))
	for _, h := range cfg.Handlers {
		if h.Name == "" || h.Command == "" {
			return nil, fmt.Errorf("handler %q: name and command are required", h.Name)
		}
		if _, dup := out[h.Name]; dup {
			return nil, fmt.Errorf("handler %q declared twice", h.Name)
		}
		out[h.Name] = h
	}
	return out, nil
}
