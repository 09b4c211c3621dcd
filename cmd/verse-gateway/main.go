// ABOUTME: Entry point for the verse-gateway conversational backend server
// ABOUTME: Wires the event bus, orchestrator, SSE streams, and HTTP API together

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/versehq/verse-gateway/internal/auth"
	"github.com/versehq/verse-gateway/internal/bus"
	"github.com/versehq/verse-gateway/internal/cognition"
	"github.com/versehq/verse-gateway/internal/config"
	"github.com/versehq/verse-gateway/internal/llm"
	"github.com/versehq/verse-gateway/internal/memory"
	"github.com/versehq/verse-gateway/internal/orchestrator"
	"github.com/versehq/verse-gateway/internal/server"
	"github.com/versehq/verse-gateway/internal/store"
	"github.com/versehq/verse-gateway/internal/stream"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
__   _____ _ __ ___  ___        __ _  __ _| |_ _____      ____ _ _   _
\ \ / / _ \ '__/ __|/ _ \_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
 \ V /  __/ |  \__ \  __/_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
  \_/ \___|_|  |___/\___|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                               |___/                             |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: VERSE_CONFIG env var > XDG_CONFIG_HOME/verse/gateway.yaml > ~/.config/verse/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("VERSE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "verse", "gateway.yaml")
}

// getDataPath returns the path to the verse data directory.
// Priority: XDG_DATA_HOME/verse > ~/.local/share/verse
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "verse")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: verse-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                               Start the gateway server")
		fmt.Println("  init                                Create a new config file interactively")
		fmt.Println("  user add --username U --password P  Create a user account")
		fmt.Println("  token --username U [--ttl 720h]     Mint an API token for a user")
		fmt.Println("  health                              Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "user":
		err = runUser(ctx)
	case "token":
		err = runToken(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Model:     %s\n", cfg.LLM.Model)
	if cfg.Memory.Mode == "remote" {
		green.Print("    ▶ ")
		fmt.Printf("Memory:    %s\n", cfg.Memory.BaseURL)
	}
	if cfg.Cognition.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Cognition: %s\n", cfg.Cognition.BaseURL)
	}
	fmt.Println()

	logger.Info("starting verse-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"model", cfg.LLM.Model,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	var mem memory.Memory
	if cfg.Memory.Mode == "remote" {
		mem = memory.NewHTTPMemory(cfg.Memory.BaseURL)
	} else {
		mem = memory.NewSQLiteMemory(st)
	}

	var cog cognition.Cognition
	if cfg.Cognition.Enabled {
		cog = cognition.NewHTTPCognition(cfg.Cognition.BaseURL)
	}

	model := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, logger)

	b := bus.New(logger)
	defer b.Close()

	heartbeat := cfg.Stream.HeartbeatInterval
	if heartbeat == 0 {
		heartbeat = stream.DefaultHeartbeatInterval
	}
	streams := stream.NewManager(b, heartbeat, logger)

	orch := orchestrator.New(b, mem, cog, model, orchestrator.Config{
		MaxIterations:       cfg.Orchestrator.MaxIterations,
		OnIterationLimit:    cfg.Orchestrator.OnIterationLimit,
		CollaboratorTimeout: cfg.Orchestrator.CollaboratorTimeout,
		HistoryLimit:        cfg.Orchestrator.HistoryLimit,
		ContextLimit:        cfg.Orchestrator.ContextLimit,
		SystemPrompt:        cfg.Orchestrator.SystemPrompt,
	}, logger)
	go func() {
		if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("orchestrator stopped", "error", err)
		}
	}()

	srv := server.New(server.Config{
		Addr:     cfg.Server.HTTPAddr,
		Bus:      b,
		Streams:  streams,
		Store:    st,
		Verifier: auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		Logger:   logger,
	})

	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// parseFlag extracts "--name value" or "--name=value" from args.
func parseFlag(args []string, name string) (string, []string, error) {
	long := "--" + name
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == long:
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s requires a value", long)
			}
			rest := append(append([]string{}, args[:i]...), args[i+2:]...)
			return args[i+1], rest, nil
		case strings.HasPrefix(arg, long+"="):
			rest := append(append([]string{}, args[:i]...), args[i+1:]...)
			return strings.TrimPrefix(arg, long+"="), rest, nil
		}
	}
	return "", args, nil
}

// runUser handles "user add --username U --password P".
func runUser(ctx context.Context) error {
	if len(os.Args) < 3 || os.Args[2] != "add" {
		return fmt.Errorf("usage: verse-gateway user add --username U --password P")
	}

	args := os.Args[3:]
	username, args, err := parseFlag(args, "username")
	if err != nil {
		return err
	}
	password, _, err := parseFlag(args, "password")
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return fmt.Errorf("--username and --password are required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created user: %s\n", username)
	fmt.Printf("  ID: %s\n", user.ID)
	return nil
}

// runToken handles "token --username U [--ttl 720h]".
func runToken(ctx context.Context) error {
	args := os.Args[2:]
	username, args, err := parseFlag(args, "username")
	if err != nil {
		return err
	}
	ttlStr, _, err := parseFlag(args, "ttl")
	if err != nil {
		return err
	}
	if username == "" {
		return fmt.Errorf("--username is required")
	}

	ttl := 30 * 24 * time.Hour
	if ttlStr != "" {
		ttl, err = time.ParseDuration(ttlStr)
		if err != nil {
			return fmt.Errorf("parsing --ttl: %w", err)
		}
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("looking up user %q: %w", username, err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(user.ID, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("verse-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "gateway.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// LLM
	fmt.Println("\n--- Language Model Configuration ---")
	llmModel := prompt(reader, "Model name", "gpt-4o-mini")
	llmBaseURL := prompt(reader, "Base URL (empty for OpenAI)", "")

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate a random JWT secret
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# verse-gateway configuration\n")
	cfg.WriteString("# Generated by verse-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	cfg.WriteString("\n")

	cfg.WriteString("llm:\n")
	cfg.WriteString("  api_key: \"${VERSE_LLM_API_KEY}\"\n")
	if llmBaseURL != "" {
		cfg.WriteString(fmt.Sprintf("  base_url: \"%s\"\n", llmBaseURL))
	}
	cfg.WriteString(fmt.Sprintf("  model: \"%s\"\n", llmModel))
	cfg.WriteString("\n")

	cfg.WriteString("memory:\n")
	cfg.WriteString("  mode: \"local\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("stream:\n")
	cfg.WriteString("  heartbeat_interval: \"30s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("orchestrator:\n")
	cfg.WriteString("  max_iterations: 3\n")
	cfg.WriteString("  on_iteration_limit: \"last_text\"\n")
	cfg.WriteString("  collaborator_timeout: \"10s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  verse-gateway user add --username you --password ...")
	fmt.Println("  verse-gateway token --username you")
	fmt.Println("  verse-gateway serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
