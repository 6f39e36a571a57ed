package ports

import (
	"context"
	"errors"
	"io"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
)

// ErrSessionNotFound is returned when a session does not exist or belongs
// to another user.
var ErrSessionNotFound = errors.New("session not found")

type SessionStore interface {
	SaveSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id, userID string) (*domain.Session, error)
	ListSessions(ctx context.Context, userID string) ([]domain.Session, error)
}

// BlobStore keeps uploaded files addressed by name.
type BlobStore interface {
	Put(name string, r io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Exists(name string) bool
}
