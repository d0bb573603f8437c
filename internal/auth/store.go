// Package auth registers shoppers, issues access tokens and keeps the
// per-user session flag.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const RoleUser = "user"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Hash  []byte `json:"pass_hash"`
	Role  string `json:"role"`
}

type UserStore interface {
	Create(ctx context.Context, email, password, role, id string) error
	Verify(ctx context.Context, email, password string) (User, error)
	Ping(ctx context.Context) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePassword(password string) string {
	return strings.TrimSpace(password)
}
