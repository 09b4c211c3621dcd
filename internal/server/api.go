// ABOUTME: HTTP API handlers: message intake, SSE event stream, conversation history.
// ABOUTME: All handlers run behind the auth middleware and scope data to the caller.

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/versehq/verse-gateway/internal/auth"
	"github.com/versehq/verse-gateway/internal/event"
)

// SendMessageRequest is the JSON request body for POST /api/messages.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content"`
}

// SendMessageResponse is the JSON response for POST /api/messages.
type SendMessageResponse struct {
	EventID        string `json:"event_id"`
	ConversationID string `json:"conversation_id"`
}

// TurnResponse is the JSON shape of one turn in conversation history.
type TurnResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ConversationMessagesResponse is the JSON response for
// GET /api/conversations/{id}/messages.
type ConversationMessagesResponse struct {
	ConversationID string         `json:"conversation_id"`
	Messages       []TurnResponse `json:"messages"`
}

// handleSendMessage handles POST /api/messages.
// It validates the body, publishes an input event for the caller, and
// returns 202; the answer arrives on the caller's SSE stream.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	identity := auth.MustFromContext(r.Context())

	req, err := parseSendRequest(r.Body)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Assign a conversation ID up front so the client can follow up.
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}

	evt := event.New(event.KindInput, identity.UserID, req.ConversationID, map[string]any{
		"content": req.Content,
	})
	if err := evt.Validate(); err != nil {
		s.logger.Error("constructed invalid event", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.bus.Publish(evt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(SendMessageResponse{
		EventID:        evt.ID,
		ConversationID: evt.ConversationID,
	})
}

// handleStream handles GET /api/stream.
// It opens an SSE stream scoped to the authenticated user and forwards
// frames until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	identity := auth.MustFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	st := s.streams.Open(r.Context(), identity.UserID)
	for frame := range st.Frames() {
		if _, err := w.Write(frame); err != nil {
			s.logger.Debug("stream write failed, client gone", "user_id", identity.UserID, "error", err)
			return
		}
		flusher.Flush()
	}
}

// handleConversationMessages handles GET /api/conversations/{id}/messages.
// Returns the turn history for a conversation, scoped to the caller,
// optionally limited by ?limit=N.
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	identity := auth.MustFromContext(r.Context())

	// Extract conversation ID from path: /api/conversations/{id}/messages
	path := r.URL.Path
	prefix := "/api/conversations/"
	suffix := "/messages"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	conversationID := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if conversationID == "" || strings.Contains(conversationID, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	// Parse optional limit parameter (default 50, max 1000)
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
		if limit > 1000 {
			limit = 1000
		}
	}

	turns, err := s.store.GetTurns(r.Context(), identity.UserID, conversationID, limit)
	if err != nil {
		s.logger.Error("failed to get turns", "error", err, "conversation_id", conversationID)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := ConversationMessagesResponse{
		ConversationID: conversationID,
		Messages:       make([]TurnResponse, len(turns)),
	}
	for i, turn := range turns {
		response.Messages[i] = TurnResponse{
			ID:        turn.ID,
			Role:      turn.Role,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt.Format(time.RFC3339),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseSendRequest parses and validates a SendMessageRequest from the given reader.
// Returns an error if the JSON is invalid or content is missing.
func parseSendRequest(r io.Reader) (*SendMessageRequest, error) {
	var req SendMessageRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	if req.Content == "" {
		return nil, errors.New("content is required")
	}

	return &req, nil
}
