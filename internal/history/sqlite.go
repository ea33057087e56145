// Package history keeps answered questions in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"docqa/internal/domain"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS answers (
            id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL,
            question TEXT NOT NULL,
            answer TEXT NOT NULL,
            file_name TEXT NOT NULL,
            score REAL NOT NULL,
            asked_at TEXT NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_answers_session ON answers(session_id, asked_at);`,
}

// SQLiteStore implements domain.History.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range migrations {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Append stores an entry, filling in ID and timestamp when missing.
func (s *SQLiteStore) Append(ctx context.Context, e domain.HistoryEntry) error {
	if e.SessionID == "" {
		return errors.New("history entry without session")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.AskedAt == "" {
		e.AskedAt = s.now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers(id, session_id, question, answer, file_name, score, asked_at) VALUES(?,?,?,?,?,?,?)`,
		e.ID, e.SessionID, e.Question, e.Answer, e.FileName, e.Score, e.AskedAt)
	return err
}

// List returns the newest entries of a session first.
func (s *SQLiteStore) List(ctx context.Context, sessionID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, question, answer, file_name, score, asked_at
         FROM answers WHERE session_id = ? ORDER BY asked_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Question, &e.Answer, &e.FileName, &e.Score, &e.AskedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteSession removes every entry of a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM answers WHERE session_id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
