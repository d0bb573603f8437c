// Package kv is the key-value persistence used by the per-user stores.
// Each logical collection (cart, enrollment, progress, session flag,
// dark-mode flag) is one serialized blob under one key.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStorage = errors.New("storage error")
	// ErrRead marks a backend that could not be read. The stored value may
	// still exist, so it must not be overwritten with a fallback.
	ErrRead = errors.New("storage read failed")
)

// StorageError describes a failed read, write or decode of a persisted blob.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("kv %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	if e.Op == "get" || e.Op == "keys" {
		return []error{ErrStorage, ErrRead, e.Err}
	}
	return []error{ErrStorage, e.Err}
}

type Store interface {
	// Get returns the value under key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
}

type namespaced struct {
	prefix string
	next   Store
}

// Namespace scopes every key of next under prefix.
func Namespace(next Store, prefix string) Store {
	if ns, ok := next.(*namespaced); ok {
		return &namespaced{prefix: ns.prefix + prefix, next: ns.next}
	}
	return &namespaced{prefix: prefix, next: next}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.next.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.next.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.next.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.next.Keys(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, n.prefix)
	}
	return keys, nil
}

func (n *namespaced) Ping(ctx context.Context) error { return n.next.Ping(ctx) }

// Clear deletes every key under prefix and reports how many were removed.
func Clear(ctx context.Context, s Store, prefix string) (int, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return 0, &StorageError{Op: "keys", Key: prefix, Err: err}
	}
	for i, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return i, &StorageError{Op: "delete", Key: k, Err: err}
		}
	}
	return len(keys), nil
}
