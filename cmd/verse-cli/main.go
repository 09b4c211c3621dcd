// ABOUTME: Interactive CLI client for verse-gateway over the HTTP API.
// ABOUTME: Sends messages and tails the caller's SSE stream with JWT auth.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
)

// getToken returns the JWT token from VERSE_TOKEN env var or ~/.config/verse/token file
func getToken() string {
	if token := os.Getenv("VERSE_TOKEN"); token != "" {
		return token
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	tokenPath := filepath.Join(configDir, "verse", "token")
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// sendRequest is the JSON body sent to POST /api/messages.
type sendRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content"`
}

// sendResponse is the JSON response from POST /api/messages.
type sendResponse struct {
	EventID        string `json:"event_id"`
	ConversationID string `json:"conversation_id"`
}

// streamEvent is the JSON payload of one SSE data frame.
type streamEvent struct {
	Type           string         `json:"type"`
	Data           map[string]any `json:"data"`
	ConversationID string         `json:"conversation_id"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "Gateway server URL")
	conversationID := flag.String("conversation", "", "Conversation ID to continue")
	flag.Parse()

	if getToken() == "" {
		fmt.Fprintln(os.Stderr, "Error: no token configured (set VERSE_TOKEN or write ~/.config/verse/token)")
		os.Exit(1)
	}

	fmt.Printf("verse-cli connected to %s\n", *server)
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *server, *conversationID); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, server, conversationID string) error {
	// Tail the event stream in the background for the whole session.
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- tailStream(ctx, server)
	}()

	// Give the stream a moment to connect before the first prompt.
	select {
	case err := <-streamErr:
		return fmt.Errorf("opening event stream: %w", err)
	case <-time.After(200 * time.Millisecond):
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)
		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-streamErr:
			return fmt.Errorf("event stream closed: %w", err)
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch {
		case input == "/quit" || input == "/exit" || input == "/q":
			return nil
		case input == "/help":
			printHelp()
			fmt.Println()
			continue
		case input == "/new":
			conversationID = ""
			fmt.Println("Started a new conversation")
			fmt.Println()
			continue
		}

		newConvID, err := sendMessage(ctx, server, conversationID, input)
		if err != nil {
			fmt.Printf("[error] %v\n", err)
			continue
		}
		conversationID = newConvID
	}
}

// printHelp displays available commands.
func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /new           Start a new conversation")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit the CLI")
}

// sendMessage posts a message and returns the conversation ID to continue with.
func sendMessage(ctx context.Context, server, conversationID, content string) (string, error) {
	bodyBytes, err := json.Marshal(sendRequest{
		ConversationID: conversationID,
		Content:        content,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/messages", server)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+getToken())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var errResp map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if msg, ok := errResp["error"]; ok {
				return "", fmt.Errorf("%s", msg)
			}
		}
		return "", fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	return sr.ConversationID, nil
}

// tailStream connects to GET /api/stream and prints events until ctx ends.
func tailStream(ctx context.Context, server string) error {
	url := fmt.Sprintf("%s/api/stream", server)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+getToken())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var evt streamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			continue
		}
		printEvent(evt)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return io.EOF
}

func printEvent(evt streamEvent) {
	gray := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)

	switch evt.Type {
	case "connection_established":
		gray.Println("[connected]")

	case "typing":
		gray.Println("[typing...]")

	case "output":
		if content, ok := evt.Data["content"].(string); ok {
			cyan.Print("assistant: ")
			fmt.Println(content)
		}

	case "error":
		if msg, ok := evt.Data["message"].(string); ok {
			red.Printf("[error] %s\n", msg)
		}

	case "heartbeat":
		// Keepalive, nothing to show.

	default:
		gray.Printf("[%s]\n", evt.Type)
	}
}
