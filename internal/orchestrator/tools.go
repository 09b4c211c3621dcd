// ABOUTME: Closed tool registry mapping model-requested tool names to collaborator calls.
// ABOUTME: Unknown tools and collaborator failures resolve to textual placeholders, never errors.

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/versehq/verse-gateway/internal/cognition"
	"github.com/versehq/verse-gateway/internal/detect"
	"github.com/versehq/verse-gateway/internal/memory"
)

// Tool names the orchestrator understands. The set is closed: anything else
// hits the unavailable fallback.
const (
	ToolMemorySearch   = "memory_search"
	ToolCognitionQuery = "cognition_query"
)

// Registry dispatches tool requests to the external collaborators.
type Registry struct {
	memory    memory.Memory
	cognition cognition.Cognition
	cfg       Config
	logger    *slog.Logger
}

// NewRegistry creates the tool registry. cognition may be nil, in which
// case cognition_query reports itself unavailable.
func NewRegistry(mem memory.Memory, cog cognition.Cognition, cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		memory:    mem,
		cognition: cog,
		cfg:       cfg,
		logger:    logger.With("component", "tools"),
	}
}

// Execute runs the named tool on behalf of userID and returns its result as
// text to feed back into the prompt. Every outcome — success, collaborator
// failure, unknown tool — is text; tool execution never aborts a turn.
func (r *Registry) Execute(ctx context.Context, req detect.ToolRequest, userID, conversationID string) string {
	switch req.Tool {
	case ToolMemorySearch:
		return r.memorySearch(ctx, userID, conversationID, req.Args)
	case ToolCognitionQuery:
		return r.cognitionQuery(ctx, userID, req.Args)
	default:
		r.logger.Warn("unknown tool requested", "tool", req.Tool, "user_id", userID)
		return fmt.Sprintf("Tool %q is unavailable.", req.Tool)
	}
}

func (r *Registry) memorySearch(ctx context.Context, userID, conversationID string, args map[string]any) string {
	if cid := stringArg(args, "conversation_id"); cid != "" {
		conversationID = cid
	}
	limit := intArg(args, "limit", r.cfg.HistoryLimit)

	var turns []memory.Turn
	err := withRetry(ctx, r.cfg.CollaboratorTimeout, func(cctx context.Context) error {
		var err error
		turns, err = r.memory.GetHistory(cctx, userID, conversationID, limit)
		return err
	})
	if err != nil {
		r.logger.Warn("memory_search failed", "user_id", userID, "error", err)
		return fmt.Sprintf("Tool %q failed: %v", ToolMemorySearch, err)
	}
	if len(turns) == 0 {
		return "No remembered conversation history."
	}

	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}

func (r *Registry) cognitionQuery(ctx context.Context, userID string, args map[string]any) string {
	if r.cognition == nil {
		return fmt.Sprintf("Tool %q is unavailable.", ToolCognitionQuery)
	}

	query := stringArg(args, "query")
	if query == "" {
		return fmt.Sprintf("Tool %q requires a \"query\" argument.", ToolCognitionQuery)
	}
	limit := intArg(args, "limit", r.cfg.ContextLimit)

	var blob string
	err := withRetry(ctx, r.cfg.CollaboratorTimeout, func(cctx context.Context) error {
		var err error
		blob, err = r.cognition.GetContext(cctx, userID, query, limit)
		return err
	})
	if err != nil {
		r.logger.Warn("cognition_query failed", "user_id", userID, "error", err)
		return fmt.Sprintf("Tool %q failed: %v", ToolCognitionQuery, err)
	}
	if blob == "" {
		return "No supplementary context found."
	}
	return blob
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, fallback int) int {
	// JSON numbers decode as float64.
	if f, ok := args[key].(float64); ok && f > 0 {
		return int(f)
	}
	return fallback
}
