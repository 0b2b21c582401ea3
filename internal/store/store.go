// internal/store/store.go
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/quizbowl/qbscore/internal/game"
)

// LiveGame wraps one in-progress GameState with the mutex that serializes
// handler access to it. The core itself is single-owner and lock-free; every
// HTTP mutation takes this lock for the full mutate-then-snapshot span.
type LiveGame struct {
	Mu   sync.Mutex
	Game *game.GameState
}

// Store holds every live game in memory, keyed by game ID.
type Store struct {
	mu    sync.Mutex
	games map[uuid.UUID]*LiveGame
}

func New() *Store {
	return &Store{
		games: make(map[uuid.UUID]*LiveGame),
	}
}

func (s *Store) Add(g *game.GameState) *LiveGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := &LiveGame{Game: g}
	s.games[g.ID] = live
	return live
}

func (s *Store) Get(id uuid.UUID) (*LiveGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, exists := s.games[id]
	return live, exists
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// IDs returns the IDs of every live game, in no particular order.
func (s *Store) IDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	return ids
}
