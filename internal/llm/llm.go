// ABOUTME: Language-model collaborator interface and prompt message types.
// ABOUTME: The orchestrator depends on this narrow surface, never on a concrete provider.

package llm

import "context"

// Message roles in a prompt.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the prompt history sent to the model.
type Message struct {
	Role    string
	Content string
}

// Client generates raw text from an ordered prompt. Implementations carry
// their own transport concerns; callers own timeouts via ctx.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
