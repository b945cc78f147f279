package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, srv *httptest.Server) *Transport {
	t.Helper()
	rest := NewRestClient(srv.URL, time.Second)
	// Keep retry backoff out of the test runtime.
	rest.SetRetryWaitTime(time.Millisecond)
	rest.SetRetryMaxWaitTime(5 * time.Millisecond)
	return NewTransport(rest, nil, testLogger())
}

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"system_health":"green"}`))
	}))
	defer srv.Close()

	var out struct {
		SystemHealth string `json:"system_health"`
	}
	err := newTestTransport(t, srv).GetJSON(context.Background(), "/v2/me/health", &out)

	require.NoError(t, err)
	assert.Equal(t, "green", out.SystemHealth)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestTransport(t, srv).GetJSON(context.Background(), "/v1/me/basestations", &struct{}{})

	require.Error(t, err)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.Status)
	assert.Equal(t, "/v1/me/basestations", terr.Path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransportErrorTrimsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newTestTransport(t, srv).GetJSON(context.Background(), "/v2/me/events?from_ts=12345", &struct{}{})

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "/v2/me/events", terr.Path)
}

func TestGetRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	body, contentType, err := newTestTransport(t, srv).GetRaw(context.Background(), srv.URL+"/status")

	require.NoError(t, err)
	assert.Equal(t, "text/html", contentType)
	assert.Equal(t, "<html>maintenance</html>", string(body))
}

func TestPostJSONSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := newTestTransport(t, srv).PostJSON(context.Background(), "/v1/me/basestations/BASE1", map[string]string{})

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusConflict, terr.Status)
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusOK, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryableStatus(tt.code), "status %d", tt.code)
	}
}
