// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"

llm:
  api_key: "sk-test"
  base_url: "https://llm.example.com/v1"
  model: "gpt-4o-mini"

memory:
  mode: "remote"
  base_url: "http://memory.internal:9090"

cognition:
  enabled: true
  base_url: "http://cognition.internal:9091"

stream:
  heartbeat_interval: "15s"

orchestrator:
  max_iterations: 5
  on_iteration_limit: "generic_message"
  collaborator_timeout: "20s"
  history_limit: 50
  context_limit: 10

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "test-secret")
	}

	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "sk-test")
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, "gpt-4o-mini")
	}

	if cfg.Memory.Mode != "remote" {
		t.Errorf("Memory.Mode = %q, want %q", cfg.Memory.Mode, "remote")
	}
	if cfg.Memory.BaseURL != "http://memory.internal:9090" {
		t.Errorf("Memory.BaseURL = %q, want %q", cfg.Memory.BaseURL, "http://memory.internal:9090")
	}

	if !cfg.Cognition.Enabled {
		t.Error("Cognition.Enabled = false, want true")
	}

	if cfg.Stream.HeartbeatInterval != 15*time.Second {
		t.Errorf("Stream.HeartbeatInterval = %v, want %v", cfg.Stream.HeartbeatInterval, 15*time.Second)
	}

	if cfg.Orchestrator.MaxIterations != 5 {
		t.Errorf("Orchestrator.MaxIterations = %d, want 5", cfg.Orchestrator.MaxIterations)
	}
	if cfg.Orchestrator.OnIterationLimit != "generic_message" {
		t.Errorf("Orchestrator.OnIterationLimit = %q, want %q", cfg.Orchestrator.OnIterationLimit, "generic_message")
	}
	if cfg.Orchestrator.CollaboratorTimeout != 20*time.Second {
		t.Errorf("Orchestrator.CollaboratorTimeout = %v, want %v", cfg.Orchestrator.CollaboratorTimeout, 20*time.Second)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "secret-from-env")
	t.Setenv("TEST_API_KEY", "key-from-env")

	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
llm:
  api_key: "${TEST_API_KEY}"
  model: "gpt-4o-mini"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "secret-from-env")
	}
	if cfg.LLM.APIKey != "key-from-env" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "key-from-env")
	}
}

func TestLoad_UnsetEnvVarExpandsEmpty(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "static"
llm:
  api_key: "${DEFINITELY_NOT_SET_VERSE_TEST}"
  model: "gpt-4o-mini"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey = %q, want empty string", cfg.LLM.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v, want reading config file error", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "server:\n  http_addr: [unclosed")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("error = %v, want parsing config file error", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
llm:
  model: "m"
stream:
  heartbeat_interval: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "heartbeat_interval") {
		t.Errorf("error = %v, want heartbeat_interval error", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{HTTPAddr: ":8080"},
			Database: DatabaseConfig{Path: "./test.db"},
			Auth:     AuthConfig{JWTSecret: "s"},
			LLM:      LLMConfig{Model: "m"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"remote memory without url", func(c *Config) { c.Memory.Mode = "remote" }, "memory.base_url"},
		{"bad memory mode", func(c *Config) { c.Memory.Mode = "cloud" }, "memory.mode"},
		{"cognition without url", func(c *Config) { c.Cognition.Enabled = true }, "cognition.base_url"},
		{"bad iteration limit policy", func(c *Config) { c.Orchestrator.OnIterationLimit = "panic" }, "on_iteration_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
