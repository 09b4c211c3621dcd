// ABOUTME: Classifies raw model output as either a structured tool invocation or a final answer.
// ABOUTME: Fails closed: anything that is not a fully valid tool request becomes a FinalAnswer.

package detect

import (
	"encoding/json"
	"strings"
)

// ToolRequest is a model response asking for an external action.
type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// FinalAnswer is a model response meant for the user, carried verbatim.
type FinalAnswer struct {
	Answer string
}

// Result holds exactly one of the two mutually exclusive interpretations
// of a raw model output.
type Result struct {
	Tool   *ToolRequest
	Answer *FinalAnswer
}

// IsToolRequest reports whether the output decoded as a tool invocation.
func (r Result) IsToolRequest() bool {
	return r.Tool != nil
}

// Classify decodes raw model output. It first attempts a strict decode as a
// ToolRequest (a JSON object with a non-empty string "tool" field and an
// object "args" field). Anything else — plain text, malformed JSON, or JSON
// that merely resembles a tool request — resolves to a FinalAnswer wrapping
// the raw text verbatim, so the user is never shown a parse failure.
// Pure function: no side effects.
func Classify(raw string) Result {
	if req, ok := decodeToolRequest(raw); ok {
		return Result{Tool: req}
	}
	return Result{Answer: &FinalAnswer{Answer: raw}}
}

func decodeToolRequest(raw string) (*ToolRequest, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, false
	}

	rawTool, ok := fields["tool"]
	if !ok {
		return nil, false
	}
	var tool string
	if err := json.Unmarshal(rawTool, &tool); err != nil || tool == "" {
		return nil, false
	}

	rawArgs, ok := fields["args"]
	if !ok {
		return nil, false
	}
	var args map[string]any
	if err := json.Unmarshal(rawArgs, &args); err != nil || args == nil {
		return nil, false
	}

	return &ToolRequest{Tool: tool, Args: args}, true
}
