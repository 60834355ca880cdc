package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vbonduro/betelcare/internal/domain"
)

// MaxResponseSize bounds how much of a backend response body is read.
const MaxResponseSize = 1 << 20

type predictionBody struct {
	Label      *string  `json:"label"`
	Confidence *float64 `json:"confidence"`
}

type diagnosisBody struct {
	Severity       *string          `json:"severity"`
	Advice         *string          `json:"advice"`
	TopPredictions []predictionBody `json:"top_predictions"`
}

type replyBody struct {
	Reply *string `json:"reply"`
}

// ParseDiagnosis decodes and validates a prediction response body. The
// returned predictions are ordered by descending confidence.
func ParseDiagnosis(r io.Reader) (*domain.DiagnosisResult, error) {
	var body diagnosisBody
	if err := json.NewDecoder(io.LimitReader(r, MaxResponseSize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if body.Severity == nil {
		return nil, errors.New("missing field: severity")
	}
	if body.Advice == nil {
		return nil, errors.New("missing field: advice")
	}
	if len(body.TopPredictions) == 0 {
		return nil, errors.New("missing field: top_predictions")
	}

	preds := make([]domain.Prediction, 0, len(body.TopPredictions))
	for i, p := range body.TopPredictions {
		if p.Label == nil || strings.TrimSpace(*p.Label) == "" {
			return nil, fmt.Errorf("top_predictions[%d]: missing label", i)
		}
		if p.Confidence == nil {
			return nil, fmt.Errorf("top_predictions[%d]: missing confidence", i)
		}
		if c := *p.Confidence; c < 0 || c > 100 {
			return nil, fmt.Errorf("top_predictions[%d]: confidence %v out of range", i, c)
		}
		preds = append(preds, domain.Prediction{Label: *p.Label, Confidence: *p.Confidence})
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})

	return &domain.DiagnosisResult{
		TopPredictions: preds,
		Severity:       *body.Severity,
		Advice:         *body.Advice,
	}, nil
}

// ParseReply decodes a chat response body of the form {"reply": "..."}.
func ParseReply(r io.Reader) (string, error) {
	var body replyBody
	if err := json.NewDecoder(io.LimitReader(r, MaxResponseSize)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Reply == nil {
		return "", errors.New("missing field: reply")
	}
	return *body.Reply, nil
}
