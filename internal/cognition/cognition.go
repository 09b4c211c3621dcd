// ABOUTME: Cognition collaborator: supplementary context for a user query.
// ABOUTME: HTTP client implementation; failures degrade to empty context upstream.

package cognition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultRequestTimeout bounds each cognition service call.
const defaultRequestTimeout = 10 * time.Second

// Cognition is the external collaborator that supplies supplementary
// context for a query. It is strictly optional: a failure or an absent
// implementation degrades the turn to an empty context.
type Cognition interface {
	GetContext(ctx context.Context, userID, query string, limit int) (string, error)
}

// HTTPCognition talks to an external cognition service:
// GET /v1/context?user_id=...&query=...&limit=...
type HTTPCognition struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCognition creates a client for the cognition service at baseURL.
func NewHTTPCognition(baseURL string) *HTTPCognition {
	return &HTTPCognition{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

type contextResponse struct {
	Context string `json:"context"`
}

// GetContext fetches a supplementary context blob for the query.
func (c *HTTPCognition) GetContext(ctx context.Context, userID, query string, limit int) (string, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/context?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cognition service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cognition service: status %d", resp.StatusCode)
	}

	var body contextResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding context: %w", err)
	}
	return body.Context, nil
}

var _ Cognition = (*HTTPCognition)(nil)
