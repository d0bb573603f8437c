package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"StoreFront/internal/kv"
)

// KVUserStore keeps users as JSON blobs keyed by email. It backs the
// memory, sqlite and redis deployments.
type KVUserStore struct {
	kv kv.Store

	// mu makes the exists-then-create check atomic within the process.
	mu sync.Mutex
}

func NewKVUserStore(store kv.Store) *KVUserStore {
	return &KVUserStore{kv: store}
}

func (s *KVUserStore) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *KVUserStore) Create(ctx context.Context, email, password, role, id string) error {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.kv.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if ok {
		return ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return kv.SaveJSON(ctx, s.kv, email, User{ID: id, Email: email, Hash: hash, Role: role})
}

func (s *KVUserStore) Verify(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	u, err := kv.LoadJSON[User](ctx, s.kv, email)
	if err != nil {
		return User{}, err
	}
	if u.ID == "" {
		return User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(u.Hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
