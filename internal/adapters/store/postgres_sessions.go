package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// PostgresSessions persists analysis sessions in a single table.
type PostgresSessions struct {
	db    *sql.DB
	table string
}

func NewPostgresSessions(db *sql.DB, table string) *PostgresSessions {
	if table == "" {
		table = "sessions"
	}
	return &PostgresSessions{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the sessions table when it is missing.
func (p *PostgresSessions) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	log_file TEXT NOT NULL,
	markdown_file TEXT NOT NULL DEFAULT '',
	videos TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (p *PostgresSessions) SaveSession(ctx context.Context, s *domain.Session) error {
	videos := s.Videos
	if videos == nil {
		videos = []string{}
	}
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO "+p.table+" (id, user_id, log_file, markdown_file, videos, created_at) VALUES ($1,$2,$3,$4,$5,$6)",
		s.ID, s.UserID, s.LogFile, s.Markdown, pq.Array(videos), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession returns the session only when userID owns it.
func (p *PostgresSessions) GetSession(ctx context.Context, id, userID string) (*domain.Session, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT id, user_id, log_file, markdown_file, videos, created_at FROM "+p.table+" WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns userID's sessions, newest first.
func (p *PostgresSessions) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, user_id, log_file, markdown_file, videos, created_at FROM "+p.table+" WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (*domain.Session, error) {
	var s domain.Session
	if err := r.Scan(&s.ID, &s.UserID, &s.LogFile, &s.Markdown, pq.Array(&s.Videos), &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ ports.SessionStore = (*PostgresSessions)(nil)
