// Package rest talks to the inference backend over its JSON/multipart HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/domain"
)

const (
	predictPath = "/api/predict"
	chatPath    = "/api/chat"
)

// Client implements backend.Predictor and backend.Chatter. It sets no
// timeout of its own; cancellation comes from the caller's context.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (c *Client) Predict(ctx context.Context, image []byte, mimeType string) (*domain.DiagnosisResult, error) {
	const op = "predict"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, uploadName(mimeType)))
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &backend.NetworkError{Op: op, Err: err}
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &backend.ProtocolError{Op: op, Status: resp.StatusCode, Err: errorMessage(resp.Body)}
	}

	result, err := backend.ParseDiagnosis(resp.Body)
	if err != nil {
		return nil, classifyBodyError(op, resp.StatusCode, err)
	}
	return result, nil
}

// Chat sends one message. The backend carries user-facing fallback replies
// on 4xx/5xx responses, so a well-formed reply is accepted for any status.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	const op = "chat"

	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &backend.NetworkError{Op: op, Err: err}
	}
	defer closeBody(resp.Body)

	reply, err := backend.ParseReply(resp.Body)
	if err != nil {
		return "", classifyBodyError(op, resp.StatusCode, err)
	}
	return reply, nil
}

// classifyBodyError separates a connection that failed while the body was
// being read from a body that arrived but had the wrong shape.
func classifyBodyError(op string, status int, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &backend.NetworkError{Op: op, Err: err}
	}
	return &backend.ProtocolError{Op: op, Status: status, Err: err}
}

// errorMessage extracts {"error": "..."} from a failed response when present.
func errorMessage(body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, backend.MaxResponseSize))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Errorf("backend error: %s", e.Error)
	}
	return fmt.Errorf("unexpected response: %.200s", strings.TrimSpace(string(data)))
}

func uploadName(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "upload.png"
	case "image/webp":
		return "upload.webp"
	default:
		return "capture.jpg"
	}
}

func closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		slog.Error("failed to close backend response body", "error", err)
	}
}
