// ABOUTME: HTTP client for an external memory service implementing the Memory interface.
// ABOUTME: Bounded request timeout; callers add their own retry policy.

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultRequestTimeout bounds each memory service call.
const defaultRequestTimeout = 10 * time.Second

// HTTPMemory talks to an external memory service over its JSON API:
// POST /v1/turns and GET /v1/history.
type HTTPMemory struct {
	baseURL string
	client  *http.Client
}

// NewHTTPMemory creates a client for the memory service at baseURL.
func NewHTTPMemory(baseURL string) *HTTPMemory {
	return &HTTPMemory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

type storeTurnRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
}

// StoreTurn records one exchange entry with the remote service.
func (m *HTTPMemory) StoreTurn(ctx context.Context, userID, conversationID, role, content string) error {
	body, err := json.Marshal(storeTurnRequest{
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	})
	if err != nil {
		return fmt.Errorf("encoding turn: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/turns", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("memory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("memory service: status %d", resp.StatusCode)
	}
	return nil
}

// GetHistory fetches the most recent turns, oldest first.
func (m *HTTPMemory) GetHistory(ctx context.Context, userID, conversationID string, limit int) ([]Turn, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("conversation_id", conversationID)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/history?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("memory service: status %d", resp.StatusCode)
	}

	var turns []Turn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return turns, nil
}

var _ Memory = (*HTTPMemory)(nil)
