// ABOUTME: Configuration loading and parsing for verse-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete verse-gateway configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	LLM          LLMConfig          `yaml:"llm"`
	Memory       MemoryConfig       `yaml:"memory"`
	Cognition    CognitionConfig    `yaml:"cognition"`
	Stream       StreamConfig       `yaml:"stream"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LLMConfig holds language model provider configuration
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// MemoryConfig selects the memory backend. Mode is "local" (the gateway's
// own database) or "remote" (an external memory service at BaseURL).
type MemoryConfig struct {
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"base_url"`
}

// CognitionConfig holds the optional cognition service configuration
type CognitionConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// StreamConfig holds SSE streaming configuration
type StreamConfig struct {
	HeartbeatInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
}

// OrchestratorConfig holds turn-loop tuning
type OrchestratorConfig struct {
	MaxIterations    int    `yaml:"max_iterations"`
	OnIterationLimit string `yaml:"on_iteration_limit"`
	HistoryLimit     int    `yaml:"history_limit"`
	ContextLimit     int    `yaml:"context_limit"`
	SystemPrompt     string `yaml:"system_prompt"`

	CollaboratorTimeout time.Duration `yaml:"-"`

	CollaboratorTimeoutRaw string `yaml:"collaborator_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	switch c.Memory.Mode {
	case "", "local":
	case "remote":
		if c.Memory.BaseURL == "" {
			return fmt.Errorf("memory.base_url is required when memory.mode is remote")
		}
	default:
		return fmt.Errorf("memory.mode must be \"local\" or \"remote\", got %q", c.Memory.Mode)
	}

	if c.Cognition.Enabled && c.Cognition.BaseURL == "" {
		return fmt.Errorf("cognition.base_url is required when cognition is enabled")
	}

	switch c.Orchestrator.OnIterationLimit {
	case "", "last_text", "generic_message":
	default:
		return fmt.Errorf("orchestrator.on_iteration_limit must be \"last_text\" or \"generic_message\", got %q",
			c.Orchestrator.OnIterationLimit)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Stream.HeartbeatIntervalRaw != "" {
		cfg.Stream.HeartbeatInterval, err = time.ParseDuration(cfg.Stream.HeartbeatIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing heartbeat_interval %q: %w", cfg.Stream.HeartbeatIntervalRaw, err)
		}
	}

	if cfg.Orchestrator.CollaboratorTimeoutRaw != "" {
		cfg.Orchestrator.CollaboratorTimeout, err = time.ParseDuration(cfg.Orchestrator.CollaboratorTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing collaborator_timeout %q: %w", cfg.Orchestrator.CollaboratorTimeoutRaw, err)
		}
	}

	return nil
}
