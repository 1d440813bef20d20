package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	CatalogDir   string        `yaml:"catalog_dir"`
	DBPath       string        `yaml:"db_path"`
	DryRun       bool          `yaml:"dry_run"`
	HelpOverlay  bool          `yaml:"help_overlay"`
	WatchCatalog bool          `yaml:"watch_catalog"`
	Journey      bool          `yaml:"journey"`
	HistoryLimit int           `yaml:"history_limit"`
	AI           AIConfig      `yaml:"ai"`
	Logging      LoggingConfig `yaml:"logging"`
}

// AIConfig configures the fallback oracle
type AIConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Provider     string        `yaml:"provider"` // gemini or http
	Model        string        `yaml:"model,omitempty"`
	APIKey       string        `yaml:"api_key,omitempty"`
	Endpoint     string        `yaml:"endpoint,omitempty"`
	TokenURL     string        `yaml:"token_url,omitempty"`
	ClientID     string        `yaml:"client_id,omitempty"`
	ClientSecret string        `yaml:"client_secret,omitempty"`
	Timeout      time.Duration `yaml:"timeout"`

	// 0 disables the cap
	MaxCallsPerMinute int `yaml:"max_calls_per_minute"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
	JSON  bool   `yaml:"json"`
}

// Provider names
const (
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
)

// Default returns the default configuration
func Default() *Config {
	base := baseDir()
	return &Config{
		CatalogDir:   filepath.Join(base, "catalog"),
		DBPath:       filepath.Join(base, "deskpilot.db"),
		DryRun:       false,
		HelpOverlay:  false,
		WatchCatalog: true,
		Journey:      false,
		HistoryLimit: 20,
		AI: AIConfig{
			Enabled:  false,
			Provider:          ProviderGemini,
			Timeout:           8 * time.Second,
			MaxCallsPerMinute: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.CatalogDir == "" {
		return fmt.Errorf("catalog_dir must be set")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	if c.AI.Enabled {
		switch c.AI.Provider {
		case ProviderGemini:
		case ProviderHTTP:
			if c.AI.Endpoint == "" {
				return fmt.Errorf("ai.endpoint is required for the http provider")
			}
			if c.AI.Model == "" {
				return fmt.Errorf("ai.model is required for the http provider")
			}
		default:
			return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
		}
		if c.AI.Timeout <= 0 {
			return fmt.Errorf("ai.timeout must be positive")
		}
		if c.AI.MaxCallsPerMinute < 0 {
			return fmt.Errorf("ai.max_calls_per_minute must not be negative")
		}
	}
	return nil
}

// Load reads configuration from file, creating with defaults if it doesn't exist
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default() // Start with defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// may hold API credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

func baseDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".deskpilot")
}
