package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticket-marketplace/internal/status"
)

type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// AuthProvider is the opaque auth surface of the hosted backend.
// RefreshSession is best-effort; the session is always re-read afterwards.
type AuthProvider interface {
	RefreshSession(ctx context.Context) error
	GetSession(ctx context.Context) (*Session, error)
}

type SessionGuard struct {
	auth AuthProvider
	now  func() time.Time
}

func NewSessionGuard(auth AuthProvider) *SessionGuard {
	return &SessionGuard{auth: auth, now: time.Now}
}

// EnsureFreshSession refreshes the token and re-reads the session.
// A mutation dialog can sit open arbitrarily long before the user confirms,
// so identity is taken here, at confirm time, never from whatever was cached
// when the dialog opened. Callers must not touch the network on error.
func (g *SessionGuard) EnsureFreshSession(ctx context.Context) (*Session, error) {
	if err := g.auth.RefreshSession(ctx); err != nil {
		slog.Warn("session refresh failed", "error", err)
	}

	session, err := g.auth.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrNotAuthenticated, err)
	}
	if session == nil || session.UserID == "" {
		return nil, status.ErrNotAuthenticated
	}
	if !session.ExpiresAt.IsZero() && g.now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", status.ErrNotAuthenticated)
	}

	return session, nil
}
