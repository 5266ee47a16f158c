package sessions

import (
	"context"
	"errors"
	"sync"

	"github.com/tomasstrnad1997/sweeper/mines"
)

var ErrSessionNotFound = errors.New("game not found")

// SessionStore keeps games by id. Put is also called after every move so
// that persistent stores can write the new state.
type SessionStore interface {
	Get(ctx context.Context, id string) (*mines.Game, error)
	Put(ctx context.Context, game *mines.Game) error
	Contains(ctx context.Context, id string) (bool, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]*mines.Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*mines.Game)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*mines.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return game, nil
}

func (s *MemoryStore) Put(_ context.Context, game *mines.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.games[id]
	return ok, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
