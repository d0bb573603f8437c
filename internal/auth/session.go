package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

const KeySession = "auth"

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the logged-in flag of one user. A missing or unreadable
// record means logged out.
type Session struct {
	LoggedIn bool         `json:"logged_in"`
	User     *SessionUser `json:"user,omitempty"`
	Since    time.Time    `json:"since,omitzero"`
}

type SessionStore struct {
	kv  kv.Store
	log *zap.Logger
}

func NewSessionStore(store kv.Store, log *zap.Logger) *SessionStore {
	return &SessionStore{kv: store, log: kit.OrNop(log)}
}

func (s *SessionStore) Status(ctx context.Context) Session {
	sess, err := kv.LoadJSON[Session](ctx, s.kv, KeySession)
	if err != nil {
		s.log.Warn("session restore failed", zap.Error(err))
		return Session{}
	}
	if sess.LoggedIn && sess.User == nil {
		return Session{}
	}
	return sess
}

func (s *SessionStore) Login(ctx context.Context, u User) error {
	return kv.SaveJSON(ctx, s.kv, KeySession, Session{
		LoggedIn: true,
		User:     &SessionUser{ID: u.ID, Email: u.Email},
		Since:    time.Now().UTC(),
	})
}

func (s *SessionStore) Logout(ctx context.Context) error {
	return kv.SaveJSON(ctx, s.kv, KeySession, Session{})
}
