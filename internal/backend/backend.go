// Package backend defines the contract with the external inference service:
// the prediction and chat clients and the errors they fail with.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/betelcare/internal/domain"
)

// AssistantPrompt frames every chat turn sent to a general-purpose model.
const AssistantPrompt = `You are a farming assistant for betel leaf (Piper betle) growers in India.
Answer questions about leaf diseases, prevention, irrigation, fertilizer and harvest.
Reply in the language the farmer wrote in. Keep answers short and practical.`

// Predictor classifies one leaf image. Exactly one attempt is made per call.
type Predictor interface {
	Predict(ctx context.Context, image []byte, mimeType string) (*domain.DiagnosisResult, error)
}

// Chatter answers one user utterance.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

// DiagnosisChatter is a Chatter that can ground its answer in the latest
// diagnosis shown to the farmer. diagnosis may be nil.
type DiagnosisChatter interface {
	Chatter
	ChatAbout(ctx context.Context, message string, diagnosis *domain.DiagnosisResult) (string, error)
}

// AssistantPromptFor extends AssistantPrompt with a summary of diagnosis.
func AssistantPromptFor(diagnosis *domain.DiagnosisResult) string {
	if diagnosis == nil || len(diagnosis.TopPredictions) == 0 {
		return AssistantPrompt
	}
	primary := diagnosis.Primary()

	var b strings.Builder
	b.WriteString(AssistantPrompt)
	fmt.Fprintf(&b, "\n\nThe farmer's latest leaf photo was diagnosed as %s (%.1f%% confidence), severity %q.",
		primary.Label, primary.Confidence, diagnosis.Severity)
	if diagnosis.Advice != "" {
		fmt.Fprintf(&b, " Advice already shown: %s", diagnosis.Advice)
	}
	b.WriteString(" Use it when the farmer asks about treatment or the state of their vines.")
	return b.String()
}

// NetworkError means the request could not be sent or the response was not
// received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError means a response arrived but did not have the expected shape.
// Status is the HTTP status code when one was received.
type ProtocolError struct {
	Op     string
	Status int
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: protocol error (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: protocol error: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
