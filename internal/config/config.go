package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries runtime settings, populated from an optional YAML file with
// environment variable overrides.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`
	// Storage selects the store implementation: "memory" or "sqlite".
	Storage string `yaml:"storage"`
	// DBPath overrides the default sqlite database location.
	DBPath string `yaml:"db_path"`

	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIModel    string `yaml:"openai_model"`
	OpenAIEndpoint string `yaml:"openai_endpoint"`
}

const (
	defaultAddr    = "127.0.0.1:8087"
	defaultStorage = "sqlite"
)

// Load reads .env, an optional config file, and environment overrides.
// The completion API key is deliberately not required: the service degrades
// to deterministic replies without one.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Config file is optional.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("APPLYWISE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("APPLYWISE_STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("APPLYWISE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("OPENAI_ENDPOINT"); v != "" {
		cfg.OpenAIEndpoint = v
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Storage == "" {
		cfg.Storage = defaultStorage
	}
	if cfg.Storage != "memory" && cfg.Storage != "sqlite" {
		return nil, fmt.Errorf("invalid storage %q: expected \"memory\" or \"sqlite\"", cfg.Storage)
	}

	return cfg, nil
}
