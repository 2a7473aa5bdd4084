package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
	"github.com/artpar/clubdues/ports"
)

// PlayerStore is an in-memory implementation of ports.PlayerStore.
type PlayerStore struct {
	mu      sync.RWMutex
	players map[string]player.Player // by ID
}

// NewPlayerStore creates a new in-memory player store.
func NewPlayerStore() *PlayerStore {
	return &PlayerStore{
		players: make(map[string]player.Player),
	}
}

// Get retrieves a player by ID.
func (s *PlayerStore) Get(ctx context.Context, id string) (player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return player.Player{}, billing.ErrNotFound
	}
	return p, nil
}

// Create stores a new player.
func (s *PlayerStore) Create(ctx context.Context, p player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; exists {
		return fmt.Errorf("player %s: %w", p.ID, billing.ErrConflict)
	}
	s.players[p.ID] = p
	return nil
}

// List returns players ordered by name.
func (s *PlayerStore) List(ctx context.Context, limit, offset int) ([]player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]player.Player, 0, len(s.players))
	for _, p := range s.players {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})

	return paginate(all, limit, offset), nil
}

// Ensure interface compliance.
var _ ports.PlayerStore = (*PlayerStore)(nil)
