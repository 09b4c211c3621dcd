// Package config handles configuration loading for verse-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${VERSE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	stream:
//	  heartbeat_interval: "30s"
//
//	orchestrator:
//	  collaborator_timeout: "10s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and SSE streams
//
// Database:
//
//	database:
//	  path: "/var/lib/verse/gateway.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${VERSE_JWT_SECRET}"
//
// Language model:
//
//	llm:
//	  api_key: "${VERSE_LLM_API_KEY}"
//	  base_url: ""                # optional, for OpenAI-compatible providers
//	  model: "gpt-4o-mini"
//
// Memory backend:
//
//	memory:
//	  mode: "local"               # local (gateway database) or remote
//	  base_url: ""                # required when mode is remote
//
// Cognition service (optional):
//
//	cognition:
//	  enabled: false
//	  base_url: ""
//
// Turn loop:
//
//	orchestrator:
//	  max_iterations: 3
//	  on_iteration_limit: "last_text"   # last_text, generic_message
//	  collaborator_timeout: "10s"
//	  history_limit: 20
//	  context_limit: 5
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/verse/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
