package kv

import (
	"context"

	"StoreFront/pkg/kit"
)

type instrumented struct {
	backend string
	next    Store
	metrics *kit.Metrics
}

// Instrument counts every operation on next in kv_operations_total.
func Instrument(next Store, backend string, m *kit.Metrics) Store {
	if m == nil {
		return next
	}
	return &instrumented{backend: backend, next: next, metrics: m}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := s.next.Get(ctx, key)
	s.metrics.ObserveStorage(s.backend, "get", err)
	return v, ok, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	err := s.next.Set(ctx, key, value)
	s.metrics.ObserveStorage(s.backend, "set", err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	s.metrics.ObserveStorage(s.backend, "delete", err)
	return err
}

func (s *instrumented) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.next.Keys(ctx, prefix)
	s.metrics.ObserveStorage(s.backend, "keys", err)
	return keys, err
}

func (s *instrumented) Ping(ctx context.Context) error { return s.next.Ping(ctx) }
