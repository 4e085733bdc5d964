// Package chat persists conversation sessions and their turn logs, with a
// Redis cache in front of the recent-history read path.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/neoimplant/dental-assistant/internal/conversation"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("chat: session not found")

// Session groups the turns of one conversation.
type Session struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Title     string
	CreatedAt time.Time
}

type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists sessions and turns in Postgres. The turn log is
// append-only; turns are never updated or deleted.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("chat: pgx pool required")
	}
	return &Store{pool: pool}
}

// CreateSession opens a new untitled session for the patient.
func (s *Store) CreateSession(ctx context.Context, patientID uuid.UUID) (*Session, error) {
	sess := &Session{ID: uuid.New(), PatientID: patientID, Title: "New Chat"}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, patient_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, sess.ID, sess.PatientID, sess.Title).Scan(&sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("chat: create session: %w", err)
	}
	return sess, nil
}

// GetSession loads one session, ErrNotFound when absent.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, patient_id, title, created_at FROM chat_sessions WHERE id = $1
	`, id).Scan(&sess.ID, &sess.PatientID, &sess.Title, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat: load session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns the patient's sessions newest-first.
func (s *Store) ListSessions(ctx context.Context, patientID uuid.UUID) ([]Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, title, created_at
		FROM chat_sessions WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("chat: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.PatientID, &sess.Title, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: list sessions: %w", err)
	}
	return sessions, nil
}

// SetTitle replaces the session title.
func (s *Store) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	_, err := s.pool.Exec(ctx, `UPDATE chat_sessions SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("chat: set title: %w", err)
	}
	return nil
}

// AppendTurn appends one turn to the session log.
func (s *Store) AppendTurn(ctx context.Context, sessionID uuid.UUID, turn conversation.Turn) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), sessionID, turn.Role, turn.Text, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("chat: append turn: %w", err)
	}
	return nil
}

// Recent returns up to limit most-recent turns, oldest-first.
func (s *Store) Recent(ctx context.Context, sessionID uuid.UUID, limit int) ([]conversation.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, text, created_at FROM (
			SELECT role, text, created_at
			FROM chat_messages WHERE session_id = $1
			ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: load recent turns: %w", err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		if err := rows.Scan(&t.Role, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("chat: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: load recent turns: %w", err)
	}
	return turns, nil
}
