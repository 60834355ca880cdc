// Package ollama answers chat messages with a locally hosted Ollama model.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/domain"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message *message `json:"message"`
	Error   string   `json:"error"`
}

type Chatter struct {
	host   string
	model  string
	client *http.Client
}

func NewChatter(host, model string) *Chatter {
	return &Chatter{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (c *Chatter) Chat(ctx context.Context, text string) (string, error) {
	return c.ChatAbout(ctx, text, nil)
}

func (c *Chatter) ChatAbout(ctx context.Context, text string, diagnosis *domain.DiagnosisResult) (string, error) {
	const op = "chat"

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: backend.AssistantPromptFor(diagnosis)},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &backend.NetworkError{Op: op, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	var body chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, backend.MaxResponseSize)).Decode(&body); err != nil {
		return "", &backend.ProtocolError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := body.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &backend.ProtocolError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}
	if body.Message == nil || strings.TrimSpace(body.Message.Content) == "" {
		return "", &backend.ProtocolError{Op: op, Status: resp.StatusCode, Err: errors.New("response has no message content")}
	}
	return body.Message.Content, nil
}
