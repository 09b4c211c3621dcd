// ABOUTME: Markdown rendering for assistant answers delivered to web clients.
// ABOUTME: Thin wrapper over goldmark producing an HTML string.

package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// HTML converts markdown to HTML. Returns an error only on a writer
// failure, which goldmark treats as fatal.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
