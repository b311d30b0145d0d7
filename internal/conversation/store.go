// Package conversation keeps the ordered log of chat turns and builds the
// request contents sent to the model from it.
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/mamachef/internal/models"
)

// DefaultWindow is the number of turns sent to the model as context.
const DefaultWindow = 12

// Greeting is the first assistant turn of every new conversation.
const Greeting = "Привет! Я **Мама-Шеф AI** 👩‍🍳 — твой личный эксперт по детскому питанию. \n\n" +
	"Я могу проанализировать тарелку с едой, придумать рецепт из того, что есть в холодильнике, " +
	"или рассказать сказку, чтобы малыш поел с аппетитом. Чем могу помочь сегодня?"

var ErrEmptyTurn = errors.New("turn has neither text nor image")

// Store is an append-only log of turns. Turns are never mutated or
// reordered after Append. The zero value is an empty store.
type Store struct {
	mu    sync.RWMutex
	turns []models.Turn
}

// New creates a store seeded with the assistant greeting.
func New() *Store {
	s := &Store{}
	s.Append(models.Turn{Role: models.RoleAssistant, Text: Greeting})
	return s
}

// Append adds a turn to the end of the log, assigning its ID and timestamp
// when unset, and returns the stored turn.
func (s *Store) Append(turn models.Turn) models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.turns = append(s.turns, turn)
	return turn
}

// Windowed returns a copy of the last n turns in order. n <= 0 returns all.
func (s *Store) Windowed(n int) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if n > 0 && len(s.turns) > n {
		start = len(s.turns) - n
	}
	out := make([]models.Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// All returns a copy of every turn.
func (s *Store) All() []models.Turn {
	return s.Windowed(0)
}

// Len returns the number of stored turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

