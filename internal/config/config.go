package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" envconfig:"DSN"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint.
// An empty endpoint disables semantic matching: the resolver and the
// conflict detector fall back to exact-match checks only.
type EmbeddingConfig struct {
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`
	APIKey   string `yaml:"api_key" envconfig:"API_KEY"`
	Model    string `yaml:"model" envconfig:"MODEL"`
}

func (e EmbeddingConfig) Enabled() bool {
	return strings.TrimSpace(e.Endpoint) != ""
}

// LoadProjectConfig reads the YAML config and applies CANONKEEPER_*
// environment overrides, which exist so credentials can stay out of the
// config file.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := envconfig.Process("CANONKEEPER_DATABASE", &cfg.Database); err != nil {
		return nil, fmt.Errorf("applying database env overrides: %w", err)
	}
	if err := envconfig.Process("CANONKEEPER_EMBEDDING", &cfg.Embedding); err != nil {
		return nil, fmt.Errorf("applying embedding env overrides: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Embedding.Enabled() && strings.TrimSpace(cfg.Embedding.Model) == "" {
		return fmt.Errorf("embedding model is required when an endpoint is set")
	}
	return nil
}
