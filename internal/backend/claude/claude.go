// Package claude answers farmer chat messages with the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/domain"
)

// maxTokens caps a reply; chat answers are a few sentences.
const maxTokens = 512

type Chatter struct {
	client *anthropic.Client
	model  string
}

func NewChatter(apiKey, model string, opts ...anthropic.ClientOption) *Chatter {
	return &Chatter{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *Chatter) Chat(ctx context.Context, message string) (string, error) {
	return c.ChatAbout(ctx, message, nil)
}

// ChatAbout answers message with diagnosis, if any, folded into the system
// prompt.
func (c *Chatter) ChatAbout(ctx context.Context, message string, diagnosis *domain.DiagnosisResult) (string, error) {
	const op = "chat"

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    backend.AssistantPromptFor(diagnosis),
		MaxTokens: maxTokens,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(message)},
	})
	if err != nil {
		return "", classify(op, err)
	}

	var parts []string
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			parts = append(parts, *content.Text)
		}
	}
	if len(parts) == 0 {
		return "", &backend.ProtocolError{Op: op, Err: errors.New("response has no text content")}
	}
	return strings.Join(parts, ""), nil
}

// classify maps SDK errors onto the backend taxonomy: anything the API
// answered is a protocol failure, everything else never reached it.
func classify(op string, err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return &backend.ProtocolError{Op: op, Err: err}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		return &backend.ProtocolError{Op: op, Status: reqErr.StatusCode, Err: err}
	}
	return &backend.NetworkError{Op: op, Err: err}
}
