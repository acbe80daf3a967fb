package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/repository/history"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrEmptyMessage      = errors.New("message content is required")
)

// Service owns per-session conversation state: the in-memory transcript shown
// to the user and the durable history log replayed into model calls.
//
// The transcript is a read-through cache over the durable log, so the two can
// only diverge while a write is in flight under the session lock.
type Service struct {
	store       history.Store
	transcripts *lru.Cache[string, []chat.Turn]
	locks       sync.Map
	logger      *zap.Logger
}

// NewService wires the durable store with an LRU transcript cache of cacheSize sessions.
func NewService(store history.Store, cacheSize int, l *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("history store is required")
	}
	if cacheSize < 1 {
		cacheSize = 1
	}

	transcripts, err := lru.New[string, []chat.Turn](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create transcript cache: %w", err)
	}

	return &Service{
		store:       store,
		transcripts: transcripts,
		logger:      logger.OrNop(l).Named("chat"),
	}, nil
}

// NormalizeSessionID trims the user supplied identifier and rejects blanks.
func NormalizeSessionID(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrSessionIDRequired
	}
	return id, nil
}

// Lock serializes turns for one session. The returned func releases it.
func (s *Service) Lock(sessionID string) func() {
	value, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// LoadTranscript returns the ordered turns of a session. Unknown sessions are empty.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	id, err := NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	if turns, ok := s.transcripts.Get(id); ok {
		return copyTurns(turns), nil
	}

	turns, err := s.store.ReadAll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", id, err)
	}
	s.transcripts.Add(id, turns)
	return copyTurns(turns), nil
}

// SaveTurns appends turns to the durable log in one atomic write and then to
// the transcript. On failure nothing is persisted and the cached transcript is
// dropped so the next read reflects the durable log.
func (s *Service) SaveTurns(ctx context.Context, sessionID string, turns ...chat.Turn) error {
	id, err := NormalizeSessionID(sessionID)
	if err != nil {
		return err
	}

	current, err := s.LoadTranscript(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.AppendAll(ctx, id, turns...); err != nil {
		s.transcripts.Remove(id)
		return fmt.Errorf("persist turns for %s: %w", id, err)
	}

	s.transcripts.Add(id, append(current, turns...))
	return nil
}

// Reset starts a new conversation: the durable log and the transcript are cleared
// together. When the durable clear fails neither is touched.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	id, err := NormalizeSessionID(sessionID)
	if err != nil {
		return err
	}

	if err := s.store.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear history for %s: %w", id, err)
	}
	s.transcripts.Remove(id)

	s.logger.Info("session reset", zap.String("session", id))
	return nil
}

func copyTurns(turns []chat.Turn) []chat.Turn {
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied
}
