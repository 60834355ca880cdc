// Package chat keeps a conversation with the support bot: an append-only
// message log, a single in-flight request and the typed-out reveal of each
// bot reply.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/betelcare/internal/backend"
	"github.com/vbonduro/betelcare/internal/domain"
)

// ApologyText replaces a reply whenever the chat backend fails.
const ApologyText = "Connection error. Please try again."

// DefaultRevealInterval is the delay between revealed characters.
const DefaultRevealInterval = 12 * time.Millisecond

type Snapshot struct {
	Log     []domain.ChatMessage `json:"log"`
	Pending bool                 `json:"pending"`
}

type Option func(*Machine)

// WithRevealInterval sets the per-character delay. Zero reveals without
// waiting, one character per step.
func WithRevealInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d >= 0 {
			m.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// Machine is safe for concurrent use. At most one request, and therefore at
// most one reveal, is in flight at a time.
type Machine struct {
	mu        sync.Mutex
	log       []domain.ChatMessage
	pending   bool
	closed    bool
	diagnosis *domain.DiagnosisResult // latest result shown, for chatters that use it
	subs      map[int]chan struct{}
	nextSub   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	chatter  backend.Chatter
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func New(chatter backend.Chatter, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		subs:     make(map[int]chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		chatter:  chatter,
		interval: DefaultRevealInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := make([]domain.ChatMessage, len(m.log))
	copy(log, m.log)
	return Snapshot{Log: log, Pending: m.pending}
}

// Send appends a user message and asks the chatter for a reply in the
// background. It reports false, doing nothing, when text is blank or a
// previous message is still pending.
func (m *Machine) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	m.mu.Lock()
	if m.closed || m.pending {
		m.mu.Unlock()
		return false
	}
	m.log = append(m.log, domain.ChatMessage{Sender: domain.SenderUser, Text: text, Time: m.now()})
	m.pending = true
	diagnosis := m.diagnosis
	m.wg.Add(1)
	m.notifyLocked()
	m.mu.Unlock()

	go m.exchange(text, diagnosis)
	return true
}

// SetDiagnosis records the latest diagnosis. Later messages sent to a
// backend.DiagnosisChatter carry it; the message in flight is unaffected.
func (m *Machine) SetDiagnosis(result *domain.DiagnosisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnosis = result
}

// Wait blocks until no request or reveal is running.
func (m *Machine) Wait() {
	m.wg.Wait()
}

// Subscribe returns a channel that receives a signal after every change to
// the log. Signals coalesce. The channel is closed when the machine closes
// or the returned cancel func is called.
func (m *Machine) Subscribe() (<-chan struct{}, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{}, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
}

// Close cancels any in-flight request and reveal. Replies arriving later
// are dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.mu.Unlock()
	m.cancel()
}

func (m *Machine) exchange(text string, diagnosis *domain.DiagnosisResult) {
	defer m.wg.Done()

	reply, err := m.ask(text, diagnosis)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}
		m.log = append(m.log, domain.ChatMessage{Sender: domain.SenderBot, Text: ApologyText, Time: m.now()})
		m.pending = false
		m.notifyLocked()
		m.logger.Warn("chat request failed",
			"network", backend.IsNetwork(err),
			"protocol", backend.IsProtocol(err),
			"error", err,
		)
		return
	}
	m.reveal(reply)
}

func (m *Machine) ask(text string, diagnosis *domain.DiagnosisResult) (string, error) {
	if dc, ok := m.chatter.(backend.DiagnosisChatter); ok {
		return dc.ChatAbout(m.ctx, text, diagnosis)
	}
	return m.chatter.Chat(m.ctx, text)
}

// reveal appends an empty bot message and grows it one character per tick
// until the whole reply is shown.
func (m *Machine) reveal(reply string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.log = append(m.log, domain.ChatMessage{Sender: domain.SenderBot, Time: m.now()})
	idx := len(m.log) - 1
	m.notifyLocked()
	m.mu.Unlock()

	var tick <-chan time.Time
	if m.interval > 0 {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	runes := []rune(reply)
	for i := range runes {
		if tick != nil {
			select {
			case <-m.ctx.Done():
				return
			case <-tick:
			}
		} else if m.ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.log[idx].Text = string(runes[:i+1])
		m.notifyLocked()
		m.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.pending = false
	m.notifyLocked()
}

func (m *Machine) notifyLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
