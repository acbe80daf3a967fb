package history

import (
	"context"
	"errors"

	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
)

var (
	// ErrSessionIDRequired is returned when a store call carries no session id.
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrInvalidRole is returned for a turn that is neither user nor assistant.
	ErrInvalidRole = errors.New("turn role must be user or assistant")
)

// Store is the durable, append-only conversation log keyed by session id.
type Store interface {
	Append(ctx context.Context, sessionID string, turn chat.Turn) error
	// AppendAll writes turns atomically: either every turn is stored or none is.
	AppendAll(ctx context.Context, sessionID string, turns ...chat.Turn) error
	ReadAll(ctx context.Context, sessionID string) ([]chat.Turn, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

func validRole(role chat.Role) bool {
	return role == chat.RoleUser || role == chat.RoleAssistant
}
