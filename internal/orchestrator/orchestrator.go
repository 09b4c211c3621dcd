// ABOUTME: Turn orchestrator consuming input events from the bus and producing output events.
// ABOUTME: Runs the prompt/classify/tool loop against the LLM with memory and cognition collaborators.

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/versehq/verse-gateway/internal/bus"
	"github.com/versehq/verse-gateway/internal/cognition"
	"github.com/versehq/verse-gateway/internal/dedupe"
	"github.com/versehq/verse-gateway/internal/detect"
	"github.com/versehq/verse-gateway/internal/event"
	"github.com/versehq/verse-gateway/internal/llm"
	"github.com/versehq/verse-gateway/internal/memory"
	"github.com/versehq/verse-gateway/internal/render"
)

const (
	// DefaultMaxIterations bounds the tool round trips per turn.
	DefaultMaxIterations = 3

	// DefaultCollaboratorTimeout bounds each memory/cognition/LLM call.
	DefaultCollaboratorTimeout = 10 * time.Second

	DefaultHistoryLimit = 20
	DefaultContextLimit = 5

	dedupeTTL     = 5 * time.Minute
	dedupeMaxSize = 4096
)

// Iteration-limit policies. last_text answers with the model's final raw
// text; generic_message substitutes a canned apology.
const (
	LimitPolicyLastText = "last_text"
	LimitPolicyGeneric  = "generic_message"
)

const (
	genericLimitMessage = "I wasn't able to finish working on that. Please try rephrasing your request."
	genericErrorMessage = "Something went wrong while handling your message. Please try again."
)

const defaultSystemPrompt = `You are a helpful assistant.

When you need more information, respond with exactly one JSON object of the form
{"tool": "<name>", "args": {...}} and nothing else. Available tools:

- memory_search: look up prior conversation turns. Args: conversation_id (optional), limit (optional).
- cognition_query: retrieve supplementary knowledge. Args: query (required), limit (optional).

Otherwise respond with your final answer as plain text.`

// Config tunes the orchestrator. Zero values take defaults.
type Config struct {
	MaxIterations       int
	OnIterationLimit    string
	CollaboratorTimeout time.Duration
	HistoryLimit        int
	ContextLimit        int
	SystemPrompt        string
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.OnIterationLimit == "" {
		c.OnIterationLimit = LimitPolicyLastText
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.ContextLimit <= 0 {
		c.ContextLimit = DefaultContextLimit
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	return c
}

// Orchestrator subscribes to the bus, turns input events into model turns,
// and publishes the results. One turn is processed at a time; a failure in
// one turn never takes the loop down.
type Orchestrator struct {
	bus       *bus.Bus
	memory    memory.Memory
	cognition cognition.Cognition
	llm       llm.Client
	tools     *Registry
	cfg       Config
	seen      *dedupe.Cache
	logger    *slog.Logger
}

// New creates an orchestrator. cognition may be nil.
func New(b *bus.Bus, mem memory.Memory, cog cognition.Cognition, model llm.Client, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Orchestrator{
		bus:       b,
		memory:    mem,
		cognition: cog,
		llm:       model,
		tools:     NewRegistry(mem, cog, cfg, logger),
		cfg:       cfg,
		seen:      dedupe.New(dedupeTTL, dedupeMaxSize),
		logger:    logger.With("component", "orchestrator"),
	}
}

// Run consumes input events until ctx is cancelled or the bus closes.
func (o *Orchestrator) Run(ctx context.Context) error {
	sub := o.bus.Subscribe()
	defer o.bus.Unsubscribe(sub)
	defer o.seen.Close()

	o.logger.Info("orchestrator started",
		"max_iterations", o.cfg.MaxIterations,
		"on_iteration_limit", o.cfg.OnIterationLimit)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopping", "reason", ctx.Err())
			return ctx.Err()
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if evt.Kind != event.KindInput {
				continue
			}
			if o.seen.CheckAndMark(evt.ID) {
				o.logger.Debug("duplicate input event ignored", "event_id", evt.ID)
				continue
			}
			o.processTurn(ctx, evt)
		}
	}
}

// turnState carries everything a single turn accumulates.
type turnState struct {
	userID         string
	conversationID string
	input          string
	iterations     int
}

func (o *Orchestrator) processTurn(ctx context.Context, in event.Event) {
	turn := &turnState{
		userID:         in.UserID,
		conversationID: in.ConversationID,
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during turn",
				"user_id", turn.userID,
				"panic", r,
				"stack", string(debug.Stack()))
			o.publishError(turn)
		}
	}()

	content, _ := in.Payload["content"].(string)
	if content == "" {
		o.logger.Warn("input event without content", "event_id", in.ID, "user_id", in.UserID)
		return
	}
	turn.input = content

	o.bus.Publish(event.New(event.KindTyping, turn.userID, turn.conversationID, nil))

	start := time.Now()
	messages := o.gatherContext(ctx, turn)
	o.recordTurn(ctx, turn, memory.RoleUser, content)

	for {
		raw, err := o.generate(ctx, messages)
		if err != nil {
			o.logger.Error("generation failed", "user_id", turn.userID, "error", err)
			o.publishError(turn)
			return
		}
		turn.iterations++

		res := detect.Classify(raw)
		if !res.IsToolRequest() {
			o.finalize(ctx, turn, res.Answer.Answer, start)
			return
		}

		if turn.iterations >= o.cfg.MaxIterations {
			answer := raw
			if o.cfg.OnIterationLimit == LimitPolicyGeneric {
				answer = genericLimitMessage
			}
			o.logger.Warn("iteration limit reached, forcing finalization",
				"user_id", turn.userID,
				"iterations", turn.iterations,
				"last_tool", res.Tool.Tool)
			o.finalize(ctx, turn, answer, start)
			return
		}

		result := o.tools.Execute(ctx, *res.Tool, turn.userID, turn.conversationID)
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: raw},
			llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("Tool %q returned:\n%s", res.Tool.Tool, result)},
		)
	}
}

// gatherContext assembles the prompt: system instructions, supplementary
// cognition context, remembered history, then the new input. Collaborator
// failures degrade the prompt instead of failing the turn.
func (o *Orchestrator) gatherContext(ctx context.Context, turn *turnState) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: o.cfg.SystemPrompt}}

	if o.cognition != nil {
		var blob string
		err := withRetry(ctx, o.cfg.CollaboratorTimeout, func(cctx context.Context) error {
			var err error
			blob, err = o.cognition.GetContext(cctx, turn.userID, turn.input, o.cfg.ContextLimit)
			return err
		})
		switch {
		case err != nil:
			o.logger.Warn("cognition unavailable, continuing without context",
				"user_id", turn.userID, "error", err)
		case blob != "":
			messages = append(messages, llm.Message{
				Role:    llm.RoleSystem,
				Content: "Relevant context:\n" + blob,
			})
		}
	}

	var history []memory.Turn
	err := withRetry(ctx, o.cfg.CollaboratorTimeout, func(cctx context.Context) error {
		var err error
		history, err = o.memory.GetHistory(cctx, turn.userID, turn.conversationID, o.cfg.HistoryLimit)
		return err
	})
	if err != nil {
		o.logger.Warn("memory unavailable, continuing without history",
			"user_id", turn.userID, "error", err)
	}
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == memory.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: turn.input})
}

func (o *Orchestrator) generate(ctx context.Context, messages []llm.Message) (string, error) {
	var raw string
	err := withRetry(ctx, o.cfg.CollaboratorTimeout, func(cctx context.Context) error {
		var err error
		raw, err = o.llm.Generate(cctx, messages)
		return err
	})
	return raw, err
}

// finalize persists the assistant turn and publishes exactly one output
// event. Persistence is best effort: the user still gets the answer.
func (o *Orchestrator) finalize(ctx context.Context, turn *turnState, answer string, start time.Time) {
	o.recordTurn(ctx, turn, memory.RoleAssistant, answer)

	payload := map[string]any{"content": answer}
	if html, err := render.HTML(answer); err == nil {
		payload["html"] = html
	}
	o.bus.Publish(event.New(event.KindOutput, turn.userID, turn.conversationID, payload))

	o.logger.Info("turn completed",
		"user_id", turn.userID,
		"iterations", turn.iterations,
		"duration", time.Since(start))
}

func (o *Orchestrator) recordTurn(ctx context.Context, turn *turnState, role, content string) {
	err := withRetry(ctx, o.cfg.CollaboratorTimeout, func(cctx context.Context) error {
		return o.memory.StoreTurn(cctx, turn.userID, turn.conversationID, role, content)
	})
	if err != nil {
		o.logger.Warn("failed to persist turn", "user_id", turn.userID, "role", role, "error", err)
	}
}

func (o *Orchestrator) publishError(turn *turnState) {
	o.bus.Publish(event.New(event.KindError, turn.userID, turn.conversationID, map[string]any{
		"message": genericErrorMessage,
	}))
}

// withRetry runs fn with a per-attempt timeout, retrying once. A cancelled
// parent context short-circuits the retry.
func withRetry(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err = fn(cctx)
		cancel()
		if err == nil || ctx.Err() != nil {
			return err
		}
	}
	return err
}
