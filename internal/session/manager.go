package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/camera"
	"github.com/vbonduro/betelcare/internal/capture"
	"github.com/vbonduro/betelcare/internal/chat"
	"github.com/vbonduro/betelcare/internal/i18n"
	"github.com/vbonduro/betelcare/internal/previewstore"
)

type Deps struct {
	Predictor      backend.Predictor
	Chatter        backend.Chatter
	Previews       previewstore.PreviewStore
	Journal        Journal
	RevealInterval time.Duration
	DefaultLang    i18n.Language
	Logger         *slog.Logger
}

// Manager holds live sessions in a size-bounded LRU with sliding expiry.
// Evicted and expired sessions are closed.
type Manager struct {
	deps  Deps
	cache *expirable.LRU[string, *Session]
}

func NewManager(deps Deps, size int, ttl time.Duration) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if _, ok := i18n.ParseLanguage(string(deps.DefaultLang)); !ok {
		deps.DefaultLang = i18n.Default
	}
	m := &Manager{deps: deps}
	m.cache = expirable.NewLRU[string, *Session](size, m.onEvict, ttl)
	return m
}

// Get returns a live session and extends its lifetime.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, false
	}
	m.cache.Add(id, s)
	return s, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or expired. created reports which.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

func (m *Manager) Create() *Session {
	id := uuid.NewString()
	logger := m.deps.Logger.With("session_id", id)

	s := &Session{
		ID:      id,
		Camera:  camera.NewRelay(),
		lang:    m.deps.DefaultLang,
		journal: m.deps.Journal,
		logger:  logger,
	}
	s.Capture = capture.New(s.Camera, m.deps.Predictor, m.deps.Previews,
		capture.WithLogger(logger),
		capture.WithPreviewPrefix(id),
		capture.WithResultHook(s.record),
	)
	s.Chat = chat.New(m.deps.Chatter,
		chat.WithLogger(logger),
		chat.WithRevealInterval(m.deps.RevealInterval),
	)

	m.cache.Add(id, s)
	logger.Info("session created")
	return s
}

func (m *Manager) Remove(id string) {
	m.cache.Remove(id)
}

func (m *Manager) Len() int {
	return m.cache.Len()
}

// Close tears down every session.
func (m *Manager) Close() {
	m.cache.Purge()
}

func (m *Manager) onEvict(_ string, s *Session) {
	s.Close()
}
