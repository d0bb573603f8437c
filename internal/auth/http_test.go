package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreFront/internal/auth"
	"StoreFront/internal/kv"
)

func newAuthTS(t *testing.T, loginLimit int) *httptest.Server {
	t.Helper()

	store := kv.NewMemStore()
	s := &auth.Server{
		Users:         auth.NewKVUserStore(kv.Namespace(store, "users:")),
		JWT:           auth.NewTokenMaker("0123456789abcdef0123456789abcdef"),
		Scope:         func(id string) kv.Store { return kv.Namespace(store, "u:"+id+":") },
		LoginLimit:    loginLimit,
		RegisterLimit: 100,
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func send(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

var creds = map[string]string{"email": "ann@example.com", "password": "password1"}

func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.Equal(t, http.StatusOK, send(t, http.MethodPost, ts.URL+"/auth/login", "", creds, &resp))
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, 900, resp.ExpiresIn)
	return resp.AccessToken
}

func TestHTTP_RegisterLoginLogout(t *testing.T) {
	ts := newAuthTS(t, 100)

	require.Equal(t, http.StatusCreated, send(t, http.MethodPost, ts.URL+"/auth/register", "", creds, nil))
	assert.Equal(t, http.StatusConflict, send(t, http.MethodPost, ts.URL+"/auth/register", "", creds, nil))

	tok := login(t, ts)

	var who struct {
		Email   string       `json:"email"`
		Session auth.Session `json:"session"`
	}
	require.Equal(t, http.StatusOK, send(t, http.MethodGet, ts.URL+"/auth/whoami", tok, nil, &who))
	assert.Equal(t, "ann@example.com", who.Email)
	assert.True(t, who.Session.LoggedIn)

	require.Equal(t, http.StatusNoContent, send(t, http.MethodPost, ts.URL+"/auth/logout", tok, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, send(t, http.MethodGet, ts.URL+"/auth/whoami", tok, nil, nil))

	tok = login(t, ts)
	assert.Equal(t, http.StatusOK, send(t, http.MethodGet, ts.URL+"/auth/whoami", tok, nil, nil))
}

func TestHTTP_RejectsBadInput(t *testing.T) {
	ts := newAuthTS(t, 100)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{name: "short password", path: "/auth/register", body: map[string]string{"email": "a@b.c", "password": "short"}, want: http.StatusBadRequest},
		{name: "missing email", path: "/auth/register", body: map[string]string{"password": "password1"}, want: http.StatusBadRequest},
		{name: "unknown field", path: "/auth/login", body: map[string]string{"email": "a@b.c", "password": "password1", "role": "admin"}, want: http.StatusBadRequest},
		{name: "unknown user", path: "/auth/login", body: creds, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, send(t, http.MethodPost, ts.URL+tt.path, "", tt.body, nil))
		})
	}

	assert.Equal(t, http.StatusUnauthorized, send(t, http.MethodGet, ts.URL+"/auth/whoami", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, send(t, http.MethodGet, ts.URL+"/auth/whoami", "nope", nil, nil))
}

func TestHTTP_LoginRateLimited(t *testing.T) {
	ts := newAuthTS(t, 2)

	for range 2 {
		send(t, http.MethodPost, ts.URL+"/auth/login", "", creds, nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(t, http.MethodPost, ts.URL+"/auth/login", "", creds, nil))
}
