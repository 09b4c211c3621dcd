// ABOUTME: OpenAI-compatible chat-completions client implementing the LLM collaborator.
// ABOUTME: Works against any endpoint speaking the OpenAI API (configurable base URL).

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyCompletion is returned when the provider responds without choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIClient creates a client for the given model. baseURL may be empty
// to use the provider default. Pass nil logger for default.
func NewOpenAIClient(apiKey, baseURL, model string, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger.With("component", "llm"),
	}
}

// Generate sends the prompt and returns the model's raw text.
func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toParams(messages),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := completion.Choices[0].Message.Content
	c.logger.Debug("completion received",
		"model", c.model,
		"prompt_messages", len(messages),
		"response_chars", len(text))
	return text, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

var _ Client = (*OpenAIClient)(nil)
