package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dynasticorpheus/gigasetelements-ha/internal/models"
)

// Vendor endpoints. The status page lives on a separate host from the
// API proper and is not covered by the session cookie.
const (
	DefaultBaseURL  = "https://api.gigaset-elements.de/api"
	DefaultAuthURL  = "https://im.gigaset-elements.de/identity/api/v1/user/login"
	DefaultCloudURL = "https://status.gigaset-elements.de/api/v1/status"
)

// Config holds everything needed to talk to the vendor cloud.
type Config struct {
	BaseURL        string
	AuthURL        string
	CloudURL       string
	Email          string
	Password       string
	Timezone       string
	SessionExpiry  time.Duration
	RequestTimeout time.Duration
	RateLimit      float64
	RateLimitBurst int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.CloudURL == "" {
		c.CloudURL = DefaultCloudURL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 5.0
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
}

// Client exposes the vendor API surface: one method per endpoint plus
// FetchSnapshot, which gathers every document of a polling cycle.
type Client struct {
	transport *Transport
	sessions  *SessionManager
	cloudURL  string
	timezone  string
	logger    *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *Client {
	cfg.applyDefaults()

	rest := NewRestClient(cfg.BaseURL, cfg.RequestTimeout)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	beginURL := cfg.BaseURL + "/v1/auth/openid/begin?op=gigaset"

	return &Client{
		transport: NewTransport(rest, limiter, logger),
		sessions:  NewSessionManager(rest, cfg.AuthURL, beginURL, cfg.Email, cfg.Password, cfg.SessionExpiry, logger),
		cloudURL:  cfg.CloudURL,
		timezone:  cfg.Timezone,
		logger:    logger,
	}
}

// EnsureAuth renews the session when it is older than the expiry.
func (c *Client) EnsureAuth(ctx context.Context, now time.Time) error {
	_, err := c.sessions.EnsureFresh(ctx, now)
	return err
}

func (c *Client) Basestations(ctx context.Context) ([]models.Basestation, error) {
	var out []models.Basestation
	if err := c.transport.GetJSON(ctx, "/v1/me/basestations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Elements(ctx context.Context) (models.ElementsDocument, error) {
	var out models.ElementsDocument
	err := c.transport.GetJSON(ctx, "/v2/me/elements", &out)
	return out, err
}

// Events returns events at or after the given watermark, newest first.
func (c *Client) Events(ctx context.Context, sinceMillis int64) (models.EventsDocument, error) {
	var out models.EventsDocument
	path := "/v2/me/events?from_ts=" + strconv.FormatInt(sinceMillis, 10)
	err := c.transport.GetJSON(ctx, path, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (models.HealthDocument, error) {
	var out models.HealthDocument
	err := c.transport.GetJSON(ctx, "/v2/me/health", &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (models.DashboardDocument, error) {
	var out models.DashboardDocument
	path := "/v1/me/events/dashboard?timezone=" + strings.ReplaceAll(c.timezone, " ", "")
	err := c.transport.GetJSON(ctx, path, &out)
	return out, err
}

// CloudStatus fetches the vendor status page. The endpoint does not
// reliably declare a structured content type, so the body is fetched
// raw and decoded on a best-effort basis.
func (c *Client) CloudStatus(ctx context.Context) (models.CloudStatus, error) {
	var out models.CloudStatus
	body, _, err := c.transport.GetRaw(ctx, c.cloudURL)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		// Maintenance pages occasionally serve HTML; treat as unknown.
		c.logger.WithError(err).Debug("Cloud status not decodable")
	}
	return out, nil
}

// SetMode requests a new active mode on the basestation. The remote
// applies it asynchronously; callers confirm via the next refresh.
func (c *Client) SetMode(ctx context.Context, basestationID, modeCode string) error {
	body := map[string]interface{}{
		"intrusion_settings": map[string]string{"active_mode": modeCode},
	}
	return c.transport.PostJSON(ctx, "/v1/me/basestations/"+basestationID, body)
}

// SendPlugCommand switches a smart plug relay on or off.
func (c *Client) SendPlugCommand(ctx context.Context, basestationID, sensorID, action string) error {
	path := fmt.Sprintf("/v1/me/basestations/%s/endnodes/%s/cmd", basestationID, sensorID)
	return c.transport.PostJSON(ctx, path, map[string]string{"name": action})
}

// SetThermostatSetpoint writes a new target temperature.
func (c *Client) SetThermostatSetpoint(ctx context.Context, basestationID, sensorID string, setpoint float64) error {
	path := fmt.Sprintf("/v1/me/basestations/%s/endnodes/%s/setpoint", basestationID, sensorID)
	return c.transport.PutJSON(ctx, path, map[string]float64{"setPoint": setpoint})
}

// StartPanic raises the user panic alarm.
func (c *Client) StartPanic(ctx context.Context) error {
	return c.transport.PostJSON(ctx, "/v1/me/devices/webfrontend/sink", map[string]string{"action": "alarm.user.start"})
}

// StopPanic clears the user panic alarm.
func (c *Client) StopPanic(ctx context.Context) error {
	return c.transport.Delete(ctx, "/v1/me/states/userAlarm")
}

// FetchSnapshot runs one polling cycle: the authentication freshness
// check first, then every document. All fields of the returned
// snapshot come from this cycle; no mixing with earlier fetches.
func (c *Client) FetchSnapshot(ctx context.Context, now time.Time, sinceMillis int64) (*models.Snapshot, error) {
	if err := c.EnsureAuth(ctx, now); err != nil {
		return nil, err
	}

	snap := &models.Snapshot{FetchedAt: now}

	var err error
	if snap.Basestations, err = c.Basestations(ctx); err != nil {
		return nil, err
	}
	if snap.Elements, err = c.Elements(ctx); err != nil {
		return nil, err
	}
	if snap.Events, err = c.Events(ctx, sinceMillis); err != nil {
		return nil, err
	}
	if snap.Health, err = c.Health(ctx); err != nil {
		return nil, err
	}
	if snap.Dashboard, err = c.Dashboard(ctx); err != nil {
		return nil, err
	}
	if snap.Cloud, err = c.CloudStatus(ctx); err != nil {
		return nil, err
	}

	return snap, nil
}
