package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// RenewalMargin is how early a token is treated as expired, so an
// in-flight request never carries a token that dies mid-request.
const RenewalMargin = 600 * time.Second

// Config configures a Session.
type Config struct {
	// TokenURL is the SSO token endpoint.
	TokenURL string

	// ClientID and ClientSecret identify this client to the SSO
	// provider. Defaults: "clientid" / "clientSecret".
	ClientID     string
	ClientSecret string

	// HTTPClient is the HTTP client to use. If nil, a default client
	// with a 30 second timeout is used.
	HTTPClient *http.Client

	// Logger receives authentication lifecycle events. If nil, the
	// standard logrus logger is used.
	Logger logrus.FieldLogger

	// Meter records authentication metrics. If nil, a noop meter is used.
	Meter metric.Meter
}

// state is one acquired session. It is replaced wholesale on
// re-authentication and dropped entirely on failure, never partially
// mutated.
type state struct {
	username  string
	password  string
	token     string
	expiresAt time.Time
}

func (s *state) expired(now time.Time) bool {
	return !now.Before(s.expiresAt.Add(-RenewalMargin))
}

// Session manages a bearer token via password-grant exchanges. One active
// session at a time; safe for concurrent use.
type Session struct {
	cfg        Config
	httpClient *http.Client
	logger     logrus.FieldLogger
	renewals   metric.Int64Counter

	mu  sync.Mutex
	cur *state
	now func() time.Time
}

// NewSession creates an unauthenticated session manager.
func NewSession(cfg Config) *Session {
	if cfg.ClientID == "" {
		cfg.ClientID = "clientid"
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = "clientSecret"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	meter := cfg.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("esotap/auth")
	}
	renewals, err := meter.Int64Counter("esotap.auth.renewals",
		metric.WithDescription("Token exchanges, initial logins included"))
	if err != nil {
		renewals = nil
	}

	return &Session{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		renewals:   renewals,
		now:        time.Now,
	}
}

// Login exchanges credentials for a bearer token. Failure is a boolean,
// not an error: on any non-200 response, transport failure, or malformed
// token, the prior session (if any) is discarded and false is returned,
// with the reason logged.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLocked(ctx, username, password)
}

func (s *Session) loginLocked(ctx context.Context, username, password string) bool {
	s.cur = nil
	if s.renewals != nil {
		s.renewals.Add(ctx, 1)
	}

	form := url.Values{}
	form.Set("response_type", "id_token token")
	form.Set("grant_type", "password")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("username", username)
	form.Set("password", password)

	s.logger.WithField("username", username).Info("authenticating")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.WithError(err).Error("authentication failed")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("authentication failed")
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.logger.WithField("status", resp.StatusCode).Error("authentication failed")
		return false
	}

	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.logger.WithError(err).Error("authentication failed: undecodable response")
		return false
	}
	expiresAt, err := TokenExpiry(body.IDToken)
	if err != nil {
		s.logger.WithError(err).Error("authentication failed: bad token")
		return false
	}

	s.cur = &state{
		username:  username,
		password:  password,
		token:     body.IDToken,
		expiresAt: expiresAt,
	}
	s.logger.WithField("username", username).Info("authentication successful")
	return true
}

// Authenticated reports whether a session currently exists, expired or not.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Expired reports whether the current token is inside the renewal margin.
// It is true from exactly RenewalMargin before the exp claim, and true
// when no session exists at all.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur == nil || s.cur.expired(s.now())
}

// Logout discards the current session, if any.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
}

// Header returns the authorization header for the current session. An
// expired session is renewed silently, exactly once, with the stored
// credentials first. If no valid session exists afterwards the returned
// header set is empty: an anonymous request, not an error, since most
// archive queries need no authentication.
func (s *Session) Header(ctx context.Context) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil && s.cur.expired(s.now()) {
		s.logger.Info("authentication token has expired, re-authenticating")
		s.loginLocked(ctx, s.cur.username, s.cur.password)
	}

	h := http.Header{}
	if s.cur != nil && !s.cur.expired(s.now()) {
		h.Set("Authorization", "Bearer "+s.cur.token)
	}
	return h
}
