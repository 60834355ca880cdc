// Package session bundles the per-browser state of the portal and manages
// its lifetime.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vbonduro/betelcare/internal/camera"
	"github.com/vbonduro/betelcare/internal/capture"
	"github.com/vbonduro/betelcare/internal/chat"
	"github.com/vbonduro/betelcare/internal/domain"
	"github.com/vbonduro/betelcare/internal/i18n"
)

// Journal records successful diagnoses. store.DiagnosisStore implements it.
type Journal interface {
	Create(ctx context.Context, sessionID string, result *domain.DiagnosisResult) (*domain.Diagnosis, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.Diagnosis, error)
}

// Session is one visitor's page state. Changing the language never touches
// the capture or chat machines.
type Session struct {
	ID      string
	Camera  *camera.Relay
	Capture *capture.Machine
	Chat    *chat.Machine

	mu      sync.RWMutex
	lang    i18n.Language
	journal Journal
	logger  *slog.Logger
}

func (s *Session) Language() i18n.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

func (s *Session) SetLanguage(lang i18n.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = lang
}

// History returns the session's most recent diagnoses, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.ListBySession(ctx, s.ID, limit)
}

// Close releases the camera stream and preview and stops any chat reveal.
func (s *Session) Close() {
	s.Capture.Close()
	s.Chat.Close()
	s.logger.Debug("session closed")
}

// record briefs the chat on a new diagnosis and journals it.
func (s *Session) record(ctx context.Context, result *domain.DiagnosisResult) {
	s.Chat.SetDiagnosis(result)
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Create(context.WithoutCancel(ctx), s.ID, result); err != nil {
		s.logger.Error("failed to journal diagnosis", "error", err)
	}
}
