// Package config handles configuration loading for strata.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for strata.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Recovery  RecoveryConfig  `mapstructure:"recovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AnthropicConfig holds completion-client settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Supports ${VAR} expansion.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default model identifier.
	Model string `mapstructure:"model"`
	// UseBedrock routes completions through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// BedrockRegion is the AWS region for Bedrock.
	BedrockRegion string `mapstructure:"bedrock_region"`
	// BedrockProfile is the shared AWS profile for Bedrock.
	BedrockProfile string `mapstructure:"bedrock_profile"`
}

// ExecutionConfig holds orchestrator tuning.
type ExecutionConfig struct {
	// MaxConcurrency bounds parallel execution and the run queue.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// DefaultTimeout is the per-run timeout when a task carries none.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// MaxDepth bounds recursive decomposition.
	MaxDepth int `mapstructure:"max_depth"`
	// HistorySize bounds the execution history ring.
	HistorySize int `mapstructure:"history_size"`
}

// RecoveryConfig holds recovery engine tuning.
type RecoveryConfig struct {
	// MaxAttempts is the per-failure-class recovery budget.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// LoggingConfig holds debug-log settings.
type LoggingConfig struct {
	// Debug enables the file-backed debug log.
	Debug bool `mapstructure:"debug"`
	// Dir is the directory the debug log lives under. Empty means the
	// current directory.
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (STRATA_*, ANTHROPIC_API_KEY)
//  2. Project config (.strata.yaml in the current directory or a parent)
//  3. User config (~/.config/strata/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration, preferring an explicit file when given.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(userConfigDir())
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading user config: %w", err)
			}
		}

		if project := findProjectConfig(); project != "" {
			projectViper := viper.New()
			projectViper.SetConfigFile(project)
			if err := projectViper.ReadInConfig(); err == nil {
				if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
					return nil, fmt.Errorf("merging project config: %w", err)
				}
			}
		}
	}

	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values for obvious mistakes.
func (c *Config) Validate() error {
	if c.Execution.MaxConcurrency < 1 {
		return fmt.Errorf("execution.max_concurrency must be at least 1, got %d", c.Execution.MaxConcurrency)
	}
	if c.Execution.MaxDepth < 1 {
		return fmt.Errorf("execution.max_depth must be at least 1, got %d", c.Execution.MaxDepth)
	}
	if c.Execution.HistorySize < 1 {
		return fmt.Errorf("execution.history_size must be at least 1, got %d", c.Execution.HistorySize)
	}
	if c.Recovery.MaxAttempts < 1 {
		return fmt.Errorf("recovery.max_attempts must be at least 1, got %d", c.Recovery.MaxAttempts)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.bedrock_region", "")
	v.SetDefault("anthropic.bedrock_profile", "")

	v.SetDefault("execution.max_concurrency", 4)
	v.SetDefault("execution.default_timeout", "10m")
	v.SetDefault("execution.max_depth", 5)
	v.SetDefault("execution.history_size", 100)

	v.SetDefault("recovery.max_attempts", 3)

	v.SetDefault("logging.debug", false)
	v.SetDefault("logging.dir", "")
}

// userConfigDir returns the XDG config directory for strata.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "strata")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "strata")
}

// ProjectConfigPath returns the project config file in effect, or empty
// when none was found. Callers use it to watch the file for changes.
func ProjectConfigPath() string {
	return findProjectConfig()
}

// findProjectConfig walks from the current directory upward looking for
// a .strata.yaml file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".strata.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
