package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
	chatmodel "github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/repository/history"
	chat "github.com/zhouzirui/z-tutor/backend/internal/service/chat"
)

type flakyStore struct {
	*history.MemoryStore
	failClear  bool
	failAppend bool
}

func (f *flakyStore) Clear(ctx context.Context, sessionID string) error {
	if f.failClear {
		return errors.New("disk on fire")
	}
	return f.MemoryStore.Clear(ctx, sessionID)
}

func (f *flakyStore) AppendAll(ctx context.Context, sessionID string, turns ...chatmodel.Turn) error {
	if f.failAppend {
		return errors.New("disk full")
	}
	return f.MemoryStore.AppendAll(ctx, sessionID, turns...)
}

func TestSaveTurnsThenLoadTranscript(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	svc, err := chat.NewService(store, 8, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.SaveTurns(ctx, "alice",
			chatmodel.UserTurn(fmt.Sprintf("q%d", i)),
			chatmodel.AssistantTurn(fmt.Sprintf("a%d", i), subject.Default)))
	}

	turns, err := svc.LoadTranscript(ctx, " alice ")
	require.NoError(t, err)
	require.Len(t, turns, 6)
	assert.Equal(t, "q0", turns[0].Content)
	assert.Equal(t, "a2", turns[5].Content)

	durable, err := store.ReadAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, turns, durable)
}

func TestResetClearsTranscriptAndDurableLog(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	svc, err := chat.NewService(store, 8, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SaveTurns(ctx, "alice", chatmodel.UserTurn("hello")))
	require.NoError(t, svc.Reset(ctx, "alice"))

	turns, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, turns)

	durable, err := store.ReadAll(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, durable)
}

func TestResetFailureLeavesBothIntact(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: history.NewMemoryStore()}
	svc, err := chat.NewService(store, 8, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SaveTurns(ctx, "alice", chatmodel.UserTurn("hello")))

	store.failClear = true
	require.Error(t, svc.Reset(ctx, "alice"))

	turns, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	durable, err := store.ReadAll(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, durable, 1)
}

func TestFailedAppendDoesNotLeaveStaleTranscript(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: history.NewMemoryStore()}
	svc, err := chat.NewService(store, 8, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SaveTurns(ctx, "alice", chatmodel.UserTurn("one")))

	store.failAppend = true
	require.Error(t, svc.SaveTurns(ctx, "alice", chatmodel.UserTurn("two")))

	turns, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "one", turns[0].Content)
}

func TestSaveTurnsWithFailingSecondTurnPersistsNeither(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	svc, err := chat.NewService(store, 8, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SaveTurns(ctx, "alice",
		chatmodel.UserTurn("q0"), chatmodel.AssistantTurn("a0", subject.Default)))

	err = svc.SaveTurns(ctx, "alice",
		chatmodel.UserTurn("q1"), chatmodel.Turn{Role: "narrator", Content: "a1"})
	require.ErrorIs(t, err, history.ErrInvalidRole)

	durable, err := store.ReadAll(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, durable, 2)
	assert.Equal(t, "a0", durable[1].Content)

	turns, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, durable, turns)
}

func TestTranscriptRehydratesAfterEviction(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	svc, err := chat.NewService(store, 1, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SaveTurns(ctx, "alice", chatmodel.UserTurn("from alice")))
	require.NoError(t, svc.SaveTurns(ctx, "bob", chatmodel.UserTurn("from bob")))

	turns, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "from alice", turns[0].Content)
}

func TestBlankSessionIDIsRejected(t *testing.T) {
	svc, err := chat.NewService(history.NewMemoryStore(), 8, nil)
	require.NoError(t, err)

	_, err = svc.LoadTranscript(context.Background(), "   ")
	assert.ErrorIs(t, err, chat.ErrSessionIDRequired)
	assert.ErrorIs(t, svc.Reset(context.Background(), ""), chat.ErrSessionIDRequired)
}

func TestLoadTranscriptReturnsCopy(t *testing.T) {
	ctx := context.Background()
	svc, err := chat.NewService(history.NewMemoryStore(), 8, nil)
	require.NoError(t, err)
	require.NoError(t, svc.SaveTurns(ctx, "alice", chatmodel.UserTurn("original")))

	turns, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	turns[0].Content = "mutated"

	again, err := svc.LoadTranscript(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
