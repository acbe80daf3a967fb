package history

import (
	"context"
	"sync"

	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
)

// MemoryStore keeps history in process memory. Used by tests and HISTORY_BACKEND=memory.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]chat.Turn
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]chat.Turn)}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn chat.Turn) error {
	return s.AppendAll(ctx, sessionID, turn)
}

func (s *MemoryStore) AppendAll(_ context.Context, sessionID string, turns ...chat.Turn) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	for _, turn := range turns {
		if !validRole(turn.Role) {
			return ErrInvalidRole
		}
	}

	s.mu.Lock()
	s.turns[sessionID] = append(s.turns[sessionID], turns...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ReadAll(_ context.Context, sessionID string) ([]chat.Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}

	s.mu.Lock()
	delete(s.turns, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
