package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/repository/history"
)

func stores(t *testing.T) map[string]history.Store {
	t.Helper()

	sqliteStore, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "data", "chat_history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]history.Store{
		"memory": history.NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestAppendThenReadAllPreservesOrder(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			const n = 7
			for i := 0; i < n; i++ {
				turn := chat.UserTurn(fmt.Sprintf("question %d", i))
				if i%2 == 1 {
					turn = chat.AssistantTurn(fmt.Sprintf("answer %d", i), subject.DSA)
				}
				require.NoError(t, store.Append(ctx, "alice", turn))
			}

			turns, err := store.ReadAll(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, turns, n)
			for i, turn := range turns {
				if i%2 == 1 {
					assert.Equal(t, chat.RoleAssistant, turn.Role)
					assert.Equal(t, fmt.Sprintf("answer %d", i), turn.Content)
					assert.Equal(t, subject.DSA, turn.Category)
				} else {
					assert.Equal(t, chat.RoleUser, turn.Role)
					assert.Equal(t, fmt.Sprintf("question %d", i), turn.Content)
				}
			}
		})
	}
}

func TestClearEmptiesOnlyThatSession(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, "alice", chat.UserTurn("hi")))
			require.NoError(t, store.Append(ctx, "bob", chat.UserTurn("hello")))

			require.NoError(t, store.Clear(ctx, "alice"))

			turns, err := store.ReadAll(ctx, "alice")
			require.NoError(t, err)
			assert.Empty(t, turns)

			turns, err = store.ReadAll(ctx, "bob")
			require.NoError(t, err)
			assert.Len(t, turns, 1)
		})
	}
}

func TestEmptySessionIDIsRejected(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Append(ctx, "", chat.UserTurn("x")), history.ErrSessionIDRequired)
			_, err := store.ReadAll(ctx, "")
			assert.ErrorIs(t, err, history.ErrSessionIDRequired)
			assert.ErrorIs(t, store.Clear(ctx, ""), history.ErrSessionIDRequired)
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat_history.db")

	first, err := history.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, "alice", chat.UserTurn("remember me")))
	require.NoError(t, first.Close())

	second, err := history.NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	turns, err := second.ReadAll(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "remember me", turns[0].Content)
}

func TestAppendAllIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.AppendAll(ctx, "alice", chat.UserTurn("first"), chat.AssistantTurn("reply", subject.Maths)))

			// 第二条写入非法，第一条也不能留在日志里。
			err := store.AppendAll(ctx, "alice", chat.UserTurn("orphan"), chat.Turn{Role: "narrator", Content: "bad"})
			require.Error(t, err)

			turns, err := store.ReadAll(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, turns, 2)
			assert.Equal(t, "first", turns[0].Content)
			assert.Equal(t, "reply", turns[1].Content)
		})
	}
}

func TestNewSQLiteStoreRejectsDSNBreakingPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"chat.db?mode=ro", "chat#1.db"} {
		_, err := history.NewSQLiteStore(filepath.Join(dir, name))
		assert.ErrorIs(t, err, history.ErrInvalidPath, "path %q", name)
	}
}
