// Package config loads the application configuration.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file
//  3. environment variables prefixed MOODJOURNAL_ (a .env file in the
//     working directory is loaded first and never overrides the real
//     environment)
//
// Environment keys are derived from field names (DataDir reads
// MOODJOURNAL_DATA_DIR, Timeouts.Dream reads MOODJOURNAL_TIMEOUT_DREAM).
// The result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOODJOURNAL"

// Config is the complete application configuration.
type Config struct {
	// DataDir holds one directory per user.
	DataDir string `yaml:"data_dir" json:"data_dir" split_words:"true" validate:"required"`

	LogDir   string `yaml:"log_dir" json:"log_dir" split_words:"true"`
	LogLevel string `yaml:"log_level" json:"log_level" split_words:"true" validate:"omitempty,oneof=debug info warn error"`

	// Language selects the user-facing message catalog.
	Language string `yaml:"language" json:"language" split_words:"true" validate:"oneof=en ru"`

	// AuthorizedUsers may use the assistant. Everyone else is ignored.
	AuthorizedUsers []int64 `yaml:"authorized_users" json:"authorized_users" split_words:"true" validate:"dive,gt=0"`

	// ConsoleUserID is the identity of the local console user. It is
	// implicitly authorized.
	ConsoleUserID int64 `yaml:"console_user_id" json:"console_user_id" split_words:"true" validate:"gt=0"`

	// MetricsAddr enables the Prometheus endpoint when set (host:port).
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" split_words:"true" validate:"omitempty,hostname_port"`

	OpenAI   OpenAIConfig   `yaml:"openai" json:"openai" envconfig:"OPENAI"`
	Timeouts TimeoutsConfig `yaml:"timeouts" json:"timeouts" envconfig:"TIMEOUT"`
}

// OpenAIConfig configures the dream analysis model.
type OpenAIConfig struct {
	// APIKey falls back to OPENAI_API_KEY. Without a key, analysis is disabled.
	APIKey  string `yaml:"api_key" json:"-" split_words:"true"`
	BaseURL string `yaml:"base_url" json:"base_url" split_words:"true" validate:"omitempty,url"`
	Model   string `yaml:"model" json:"model" split_words:"true" validate:"required"`

	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" split_words:"true" validate:"gt=0"`
	Temperature float64 `yaml:"temperature" json:"temperature" split_words:"true" validate:"gte=0,lte=2"`

	// InputTokenBudget truncates long dream texts before analysis. 0 disables.
	InputTokenBudget int `yaml:"input_token_budget" json:"input_token_budget" split_words:"true" validate:"gte=0"`

	// BreakerFailures consecutive failures open the circuit for BreakerCooldown.
	BreakerFailures uint32        `yaml:"breaker_failures" json:"breaker_failures" split_words:"true" validate:"gt=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" json:"breaker_cooldown" split_words:"true" validate:"gt=0"`
}

// TimeoutsConfig bounds how long conversations wait for the user.
type TimeoutsConfig struct {
	Password time.Duration `yaml:"password" json:"password" split_words:"true" validate:"gt=0"`
	Summary  time.Duration `yaml:"summary" json:"summary" split_words:"true" validate:"gt=0"`
	Dream    time.Duration `yaml:"dream" json:"dream" split_words:"true" validate:"gt=0"`
	Analysis time.Duration `yaml:"analysis" json:"analysis" split_words:"true" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := "data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".moodjournal", "data")
	}
	return &Config{
		DataDir:       dataDir,
		LogLevel:      "info",
		Language:      "en",
		ConsoleUserID: 1,
		OpenAI: OpenAIConfig{
			Model:            "gpt-4o",
			MaxTokens:        3500,
			Temperature:      0.7,
			InputTokenBudget: 6000,
			BreakerFailures:  3,
			BreakerCooldown:  time.Minute,
		},
		Timeouts: TimeoutsConfig{
			Password: 180 * time.Second,
			Summary:  600 * time.Second,
			Dream:    900 * time.Second,
			Analysis: 90 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment. envFiles are dotenv files to load
// first; missing ones are ignored. With no envFiles, ".env" is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// IsAuthorized reports whether userID may use the assistant.
func (c *Config) IsAuthorized(userID int64) bool {
	return userID == c.ConsoleUserID || slices.Contains(c.AuthorizedUsers, userID)
}
