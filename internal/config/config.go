// Package config loads server configuration from a config file and
// PRDFORGE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port int `json:"port" mapstructure:"port"`

	// Provider selects the LLM backend: openai, anthropic, or openrouter.
	Provider string `json:"provider" mapstructure:"provider"`
	Model    string `json:"model" mapstructure:"model"`
	APIKey   string `json:"apiKey" mapstructure:"api_key"`
	BaseURL  string `json:"baseURL,omitempty" mapstructure:"base_url"`

	// MaxTokens caps completion length; zero keeps the provider default.
	MaxTokens int `json:"maxTokens" mapstructure:"max_tokens"`

	// DatabasePath locates the project store; empty selects the in-memory store.
	DatabasePath string `json:"databasePath" mapstructure:"database_path"`

	// AuthTokens maps bearer tokens to owner keys.
	AuthTokens map[string]string `json:"-" mapstructure:"auth_tokens"`

	// AllowedOrigins lists CORS origins; empty allows localhost only.
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowed_origins"`
}

const (
	defaultPort     = 47800
	defaultProvider = "openai"
	defaultModel    = "gpt-4o-mini"
)

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the PRDFORGE_ prefix, e.g.
// PRDFORGE_API_KEY.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", defaultPort)
	v.SetDefault("provider", defaultProvider)
	v.SetDefault("model", defaultModel)
	v.SetDefault("database_path", defaultDatabasePath())

	v.SetEnvPrefix("PRDFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Provider key env vars take precedence when the generic key is unset.
	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openrouter":
			cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
		default:
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	return &cfg, nil
}

// Validate checks the configuration for start-up blockers.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured for provider %s", c.Provider)
	}
	return nil
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "prdforge.db")
	}
	return filepath.Join(home, ".prdforge", "projects.db")
}
