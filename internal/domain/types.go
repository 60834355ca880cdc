package domain

import (
	"strings"
	"time"
)

// Image is an owned still image together with its MIME type.
type Image struct {
	Data     []byte
	MimeType string
}

func (i *Image) Empty() bool {
	return i == nil || len(i.Data) == 0
}

type Prediction struct {
	Label      string
	Confidence float64
}

// DiagnosisResult is the outcome of one prediction. TopPredictions is ordered
// by descending confidence; the first entry is the primary diagnosis.
type DiagnosisResult struct {
	TopPredictions []Prediction
	Severity       string
	Advice         string
}

// Primary returns the highest-confidence prediction.
func (r *DiagnosisResult) Primary() Prediction {
	if r == nil || len(r.TopPredictions) == 0 {
		return Prediction{}
	}
	return r.TopPredictions[0]
}

// Others returns every prediction after the primary one.
func (r *DiagnosisResult) Others() []Prediction {
	if r == nil || len(r.TopPredictions) < 2 {
		return nil
	}
	return r.TopPredictions[1:]
}

// Theme is the display theme picked from a free-text severity.
type Theme string

const (
	ThemeSevere   Theme = "severe"
	ThemeModerate Theme = "moderate"
	ThemeHealthy  Theme = "healthy"
	ThemeNeutral  Theme = "neutral"
)

// ThemeFor classifies a severity string by substring match only.
func ThemeFor(severity string) Theme {
	s := strings.ToLower(severity)
	switch {
	case strings.Contains(s, "severe"), strings.Contains(s, "high"), strings.Contains(s, "rot"):
		return ThemeSevere
	case strings.Contains(s, "moderate"), strings.Contains(s, "medium"):
		return ThemeModerate
	case severity != "":
		return ThemeHealthy
	default:
		return ThemeNeutral
	}
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type ChatMessage struct {
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// Diagnosis is a journal row: one successful prediction made in a session.
type Diagnosis struct {
	ID         int64
	SessionID  string
	Label      string
	Confidence float64
	Severity   string
	Advice     string
	CreatedAt  time.Time
}
