package kv

import (
	"context"
	"encoding/json"
)

// LoadJSON decodes the blob under key into a fresh T. A missing key yields
// the zero T and no error. Backend and decode failures yield the zero T and
// a *StorageError; callers log it and carry on with the default.
func LoadJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T

	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return v, &StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok || len(raw) == 0 {
		return v, nil
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, &StorageError{Op: "decode", Key: key, Err: err}
	}
	return v, nil
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}
