// Package session keeps per-user chat and tracker state in memory.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/mamachef/internal/conversation"
	"github.com/mmynk/mamachef/internal/metrics"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/nutrition"
	"github.com/mmynk/mamachef/internal/profile"
)

var (
	ErrBusy     = errors.New("a request is already in progress for this session")
	ErrNotFound = errors.New("session not found")
)

// Stream identifies an independent request stream within a session.
type Stream int

const (
	StreamChat Stream = iota
	StreamAnalysis
	numStreams
)

func (s Stream) String() string {
	switch s {
	case StreamChat:
		return "chat"
	case StreamAnalysis:
		return "analysis"
	default:
		return "unknown"
	}
}

// Session is the server-side state of one user.
// Conversation has its own lock; profile, batch and busy flags are guarded by mu.
type Session struct {
	ID           string
	CreatedAt    time.Time
	Conversation *conversation.Store

	mu       sync.Mutex
	profile  models.Profile
	batch    *nutrition.Batch
	saving   bool
	busy     [numStreams]bool
	lastSeen time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		Conversation: conversation.New(),
		profile:      profile.Default(),
		batch:        nutrition.NewBatch(nil, nil),
		lastSeen:     now,
	}
}

func (s *Session) Profile() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// UpdateProfile applies fn to the current profile. The profile is replaced
// only when fn succeeds.
func (s *Session) UpdateProfile(fn func(models.Profile) (models.Profile, error)) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := fn(s.profile)
	if err != nil {
		return s.profile, err
	}
	s.profile = p
	return p, nil
}

// WithBatch runs fn with exclusive access to the current recognition batch.
func (s *Session) WithBatch(fn func(b *nutrition.Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.batch)
}

// ReplaceBatch swaps in a freshly analysed batch.
func (s *Session) ReplaceBatch(b *nutrition.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = b
}

// SaveBatch hands fn a snapshot of the current batch and clears the batch
// when fn succeeds. fn runs without holding the session lock. The batch is
// cleared only if it was not replaced meanwhile, and a second SaveBatch while
// one is running fails with ErrBusy so a batch cannot be saved twice.
func (s *Session) SaveBatch(fn func(items []models.RecognizedItem, image *models.InlineData) error) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrBusy
	}
	s.saving = true
	batch := s.batch
	items, image := batch.Items(), batch.Image()
	s.mu.Unlock()

	err := fn(items, image)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		return err
	}
	if s.batch == batch {
		s.batch = nutrition.NewBatch(nil, nil)
	}
	return nil
}

// TryBegin marks the stream busy. A second call before End fails with ErrBusy
// instead of queueing, so replies can never arrive out of order.
func (s *Session) TryBegin(stream Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy[stream] {
		return ErrBusy
	}
	s.busy[stream] = true
	return nil
}

func (s *Session) End(stream Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy[stream] = false
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// idleSince reports whether the session was last used before cutoff and has
// no request in flight.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.busy {
		if b {
			return false
		}
	}
	return s.lastSeen.Before(cutoff)
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a session with the default profile, a greeting and an empty batch.
func (m *Manager) Create() *Session {
	s := newSession(m.now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(n)
	slog.Info("Session created", "session_id", s.ID)
	return s
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than idle and returns how many were removed.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(n)
	if removed > 0 {
		slog.Info("Swept idle sessions", "removed", removed, "active", n)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep(idle)
		}
	}
}
