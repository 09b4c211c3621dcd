// ABOUTME: Tests for tool-call classification of raw model output.
// ABOUTME: Malformed or ambiguous output must resolve to a FinalAnswer, never an error.

package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ValidToolRequest(t *testing.T) {
	res := Classify(`{"tool":"x","args":{}}`)

	require.True(t, res.IsToolRequest())
	assert.Equal(t, "x", res.Tool.Tool)
	assert.Empty(t, res.Tool.Args)
	assert.Nil(t, res.Answer)
}

func TestClassify_ToolRequestWithArgs(t *testing.T) {
	res := Classify(`{"tool":"memory_search","args":{"query":"coffee","limit":5}}`)

	require.True(t, res.IsToolRequest())
	assert.Equal(t, "memory_search", res.Tool.Tool)
	assert.Equal(t, "coffee", res.Tool.Args["query"])
}

func TestClassify_PlainTextIsFinalAnswer(t *testing.T) {
	res := Classify("hello world")

	require.False(t, res.IsToolRequest())
	assert.Equal(t, "hello world", res.Answer.Answer)
}

func TestClassify_MalformedToolRequestsAreFinalAnswers(t *testing.T) {
	// Each of these resembles a tool request but fails validation; the raw
	// text must come back verbatim rather than surfacing a parse error.
	cases := []string{
		`{"tool":123}`,
		`{"tool":"x"}`,                 // missing args
		`{"tool":"","args":{}}`,        // empty tool name
		`{"tool":"x","args":null}`,     // args not an object
		`{"tool":"x","args":"notmap"}`, // args wrong type
		`{"tool":"x","args":{`,         // truncated JSON
		`{"args":{}}`,                  // missing tool
	}

	for _, raw := range cases {
		res := Classify(raw)
		require.False(t, res.IsToolRequest(), "input %q should not classify as tool request", raw)
		assert.Equal(t, raw, res.Answer.Answer)
	}
}

func TestClassify_SurroundingWhitespaceTolerated(t *testing.T) {
	res := Classify("  \n" + `{"tool":"cognition_query","args":{"q":"hi"}}` + "\n")

	require.True(t, res.IsToolRequest())
	assert.Equal(t, "cognition_query", res.Tool.Tool)
}

func TestClassify_JSONThatIsNotAnObject(t *testing.T) {
	for _, raw := range []string{`"just a string"`, `[1,2,3]`, `42`} {
		res := Classify(raw)
		require.False(t, res.IsToolRequest())
		assert.Equal(t, raw, res.Answer.Answer)
	}
}
