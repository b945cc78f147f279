package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultSessionExpiry is how long a login is trusted before it is
// renewed. Matches the lifetime the vendor grants a session cookie.
const DefaultSessionExpiry = 14400 * time.Second

// Session is one authenticated exchange with the identity service.
// The session artifact itself is a cookie set held by the shared HTTP
// client's jar; Session records the clock baseline it was minted at.
// Sessions are replaced wholesale, never partially mutated.
type Session struct {
	Identity      string
	Authenticated time.Time
}

// SessionManager owns the credentials and decides when
// re-authentication is due. Safe for concurrent callers: the
// freshness check and the login exchange are serialized so two
// overlapping refresh cycles cannot both decide to re-authenticate.
type SessionManager struct {
	rest     *resty.Client
	authURL  string
	beginURL string
	email    string
	password string
	expiry   time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	session *Session
}

func NewSessionManager(rest *resty.Client, authURL, beginURL, email, password string, expiry time.Duration, logger *logrus.Logger) *SessionManager {
	if expiry <= 0 {
		expiry = DefaultSessionExpiry
	}
	return &SessionManager{
		rest:     rest,
		authURL:  authURL,
		beginURL: beginURL,
		email:    email,
		password: password,
		expiry:   expiry,
		logger:   logger,
	}
}

// EnsureFresh returns the current session, performing a login exchange
// first when the session is missing or older than the expiry duration.
// On login failure the old session is retained and an error wrapping
// ErrAuthentication is returned.
func (m *SessionManager) EnsureFresh(ctx context.Context, now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && now.Sub(m.session.Authenticated) <= m.expiry {
		return m.session, nil
	}

	s, err := m.authenticate(ctx, now)
	if err != nil {
		return nil, err
	}
	m.session = s
	return s, nil
}

func (m *SessionManager) authenticate(ctx context.Context, now time.Time) (*Session, error) {
	m.logger.WithField("email", m.email).Debug("Authenticating")

	resp, err := m.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": m.email, "password": m.password}).
		Post(m.authURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: login returned status %d", ErrAuthentication, resp.StatusCode())
	}

	// Second leg of the exchange: completes the openid handshake and
	// sets the API session cookie in the shared jar.
	resp, err = m.rest.R().SetContext(ctx).Get(m.beginURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: session exchange returned status %d", ErrAuthentication, resp.StatusCode())
	}

	return &Session{Identity: m.email, Authenticated: now}, nil
}
