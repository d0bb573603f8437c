package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreFront/internal/kv"
)

func backends(t *testing.T) map[string]kv.Store {
	t.Helper()

	sqlite, err := kv.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]kv.Store{
		"memory": kv.NewMemStore(),
		"sqlite": sqlite,
		"redis":  kv.NewRedisStore(client),
	}
}

func TestStore_Conformance(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Ping(ctx))

			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "a:cart", []byte(`[1]`)))
			require.NoError(t, s.Set(ctx, "a:cart", []byte(`[1,2]`)))
			require.NoError(t, s.Set(ctx, "a:progress", []byte(`{}`)))
			require.NoError(t, s.Set(ctx, "b:cart", []byte(`[]`)))

			v, ok, err := s.Get(ctx, "a:cart")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `[1,2]`, string(v))

			keys, err := s.Keys(ctx, "a:")
			require.NoError(t, err)
			assert.Equal(t, []string{"a:cart", "a:progress"}, keys)

			require.NoError(t, s.Delete(ctx, "a:cart"))
			require.NoError(t, s.Delete(ctx, "a:cart"))

			_, ok, err = s.Get(ctx, "a:cart")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_KeysTreatsPrefixLiterally(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "u_1*:cart", []byte(`1`)))
			require.NoError(t, s.Set(ctx, "u_10:cart", []byte(`1`)))
			require.NoError(t, s.Set(ctx, "U_1*:cart", []byte(`1`)))

			keys, err := s.Keys(ctx, "u_1*:")
			require.NoError(t, err)
			assert.Equal(t, []string{"u_1*:cart"}, keys)
		})
	}
}

func TestNamespace(t *testing.T) {
	ctx := context.Background()
	base := kv.NewMemStore()

	user := kv.Namespace(kv.Namespace(base, "shophub_"), "u1:")
	require.NoError(t, user.Set(ctx, "cart", []byte(`[]`)))

	_, ok, err := base.Get(ctx, "shophub_u1:cart")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := user.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"cart"}, keys)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	base := kv.NewMemStore()
	require.NoError(t, base.Set(ctx, "u1:cart", []byte(`[]`)))
	require.NoError(t, base.Set(ctx, "u1:auth", []byte(`{}`)))
	require.NoError(t, base.Set(ctx, "u2:cart", []byte(`[]`)))

	n, err := kv.Clear(ctx, base, "u1:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := base.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2:cart"}, keys)
}

type failingStore struct{ kv.MemStore }

func (*failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (*failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemStore()

	t.Run("missing key yields zero value", func(t *testing.T) {
		v, err := kv.LoadJSON[[]int](ctx, s, "nope")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("corrupt blob yields zero value and storage error", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "bad", []byte(`{"not":"a list"`)))

		v, err := kv.LoadJSON[[]int](ctx, s, "bad")
		assert.Nil(t, v)
		assert.ErrorIs(t, err, kv.ErrStorage)

		var se *kv.StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "decode", se.Op)
		assert.Equal(t, "bad", se.Key)
		assert.NotErrorIs(t, err, kv.ErrRead)
	})

	t.Run("schema mismatch yields zero value", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "old", []byte(`["a","b"]`)))

		v, err := kv.LoadJSON[[]int](ctx, s, "old")
		assert.Nil(t, v)
		assert.ErrorIs(t, err, kv.ErrStorage)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, kv.SaveJSON(ctx, s, "ok", []int{1, 2, 3}))

		v, err := kv.LoadJSON[[]int](ctx, s, "ok")
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, v)
	})

	t.Run("backend failures are storage errors", func(t *testing.T) {
		f := &failingStore{}

		_, err := kv.LoadJSON[[]int](ctx, f, "x")
		assert.ErrorIs(t, err, kv.ErrStorage)
		assert.ErrorIs(t, err, kv.ErrRead)
		assert.ErrorContains(t, err, "disk on fire")

		err = kv.SaveJSON(ctx, f, "x", []int{1})
		assert.ErrorIs(t, err, kv.ErrStorage)
		assert.NotErrorIs(t, err, kv.ErrRead)
	})
}
