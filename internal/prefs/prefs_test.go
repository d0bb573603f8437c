package prefs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreFront/internal/kv"
	"StoreFront/internal/prefs"
)

func TestStore_DarkMode(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	ps := prefs.New(store, nil)

	assert.False(t, ps.DarkMode(ctx))

	require.NoError(t, ps.SetDarkMode(ctx, true))
	assert.True(t, ps.DarkMode(ctx))
	raw, _, _ := store.Get(ctx, prefs.KeyDarkMode)
	assert.Equal(t, "true", string(raw))

	require.NoError(t, ps.SetDarkMode(ctx, false))
	assert.False(t, prefs.New(store, nil).DarkMode(ctx))

	require.NoError(t, store.Set(ctx, prefs.KeyDarkMode, []byte("yes")))
	assert.False(t, ps.DarkMode(ctx))
}

func TestHTTP_DarkMode(t *testing.T) {
	store := kv.NewMemStore()
	s := &prefs.Server{Scope: func(*http.Request) (kv.Store, bool) { return store, true }}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/prefs/dark-mode", strings.NewReader(`{"enabled":true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/prefs/dark-mode")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Enabled bool `json:"enabled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Enabled)

	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/prefs/dark-mode", strings.NewReader(`{"enabled":"on"}`))
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
