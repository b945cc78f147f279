package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newAuthServer(t *testing.T, logins *int32, loginStatus *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "user@example.com", creds["email"])

		atomic.AddInt32(logins, 1)
		w.WriteHeader(int(atomic.LoadInt32(loginStatus)))
	})
	mux.HandleFunc("/begin", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureFreshSkipsLoginWhileValid(t *testing.T) {
	var logins int32
	loginStatus := int32(http.StatusOK)
	srv := newAuthServer(t, &logins, &loginStatus)

	rest := NewRestClient(srv.URL, time.Second)
	m := NewSessionManager(rest, srv.URL+"/login", srv.URL+"/begin", "user@example.com", "secret", time.Hour, testLogger())

	now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	s1, err := m.EnsureFresh(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", s1.Identity)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))

	// Within expiry: same session, no network exchange.
	s2, err := m.EnsureFresh(context.Background(), now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestEnsureFreshReauthenticatesAfterExpiry(t *testing.T) {
	var logins int32
	loginStatus := int32(http.StatusOK)
	srv := newAuthServer(t, &logins, &loginStatus)

	rest := NewRestClient(srv.URL, time.Second)
	m := NewSessionManager(rest, srv.URL+"/login", srv.URL+"/begin", "user@example.com", "secret", time.Hour, testLogger())

	now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	_, err := m.EnsureFresh(context.Background(), now)
	require.NoError(t, err)

	later := now.Add(time.Hour + time.Second)
	s2, err := m.EnsureFresh(context.Background(), later)
	require.NoError(t, err)
	assert.Equal(t, later, s2.Authenticated)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestEnsureFreshLoginFailure(t *testing.T) {
	var logins int32
	loginStatus := int32(http.StatusUnauthorized)
	srv := newAuthServer(t, &logins, &loginStatus)

	rest := NewRestClient(srv.URL, time.Second)
	m := NewSessionManager(rest, srv.URL+"/login", srv.URL+"/begin", "user@example.com", "wrong", time.Hour, testLogger())

	_, err := m.EnsureFresh(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	// Recovery: correct credentials on the next attempt succeed.
	atomic.StoreInt32(&loginStatus, http.StatusOK)
	s, err := m.EnsureFresh(context.Background(), time.Now())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestDefaultSessionExpiry(t *testing.T) {
	m := NewSessionManager(nil, "", "", "", "", 0, testLogger())
	assert.Equal(t, DefaultSessionExpiry, m.expiry)
}
