package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/z-tutor/backend/internal/analysis/subject"
	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
)

// SQLiteStore persists conversation history in a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// ErrInvalidPath is returned for a database path the sqlite DSN cannot carry.
var ErrInvalidPath = errors.New("history database path must not contain '?' or '#'")

// NewSQLiteStore opens (and migrates) the database at path.
// 路径会直接拼进 DSN，'?' 和 '#' 会被驱动当作参数分隔符，所以直接拒绝。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.ContainsAny(path, "?#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// sqlite 只允许一个写连接。
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS message_store (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_message_store_session ON message_store(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn chat.Turn) error {
	return s.AppendAll(ctx, sessionID, turn)
}

// AppendAll inserts turns in one transaction. The role CHECK constraint rolls
// the whole batch back when any turn is invalid.
func (s *SQLiteStore) AppendAll(ctx context.Context, sessionID string, turns ...chat.Turn) (err error) {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO message_store (session_id, role, content, category, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, turn := range turns {
		createdAt := turn.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err = stmt.ExecContext(ctx, sessionID, string(turn.Role), turn.Content, string(turn.Category), createdAt); err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, category, created_at
		FROM message_store WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}
	defer rows.Close()

	turns := make([]chat.Turn, 0, 16)
	for rows.Next() {
		var (
			role     string
			category string
			turn     chat.Turn
		)
		if err := rows.Scan(&role, &turn.Content, &category, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = chat.Role(role)
		turn.Category = subject.Category(category)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM message_store WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}
