package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SafetyMargin is subtracted from a token's expiry when deciding whether it
// can still be reused without asking the provider.
const SafetyMargin = 30 * time.Second

// DefaultTTL is assumed when the provider reports no lifetime.
const DefaultTTL = time.Hour

// State is the credential lifecycle.
type State int

const (
	Unauthenticated State = iota
	Valid
	Expired
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// Grant is a credential issued by the identity provider.
type Grant struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Requester performs one credential request against the identity provider.
// interactive asks the provider to show its consent screen.
type Requester interface {
	RequestToken(ctx context.Context, clientID string, interactive bool) (Grant, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, clientID string, interactive bool) (Grant, error)

func (f RequesterFunc) RequestToken(ctx context.Context, clientID string, interactive bool) (Grant, error) {
	return f(ctx, clientID, interactive)
}

// AuthError reports a denied or malformed credential request. Code is the
// provider's error code when it sent one.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "authorization failed: " + e.Code
	}
	if e.Code == "" {
		return "authorization failed: " + e.Err.Error()
	}
	return fmt.Sprintf("authorization failed: %s: %v", e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Session holds the bearer credential for the remote provider.
type Session struct {
	mu        sync.Mutex
	requester Requester
	now       func() time.Time

	clientID  string
	token     string
	expiresAt time.Time
	requests  int
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates an unauthenticated session.
func New(r Requester, opts ...Option) *Session {
	s := &Session{requester: r, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns a bearer token for clientID. A cached token with more than
// SafetyMargin left is returned without contacting the provider. Asking for a
// different client discards the cached token. A failed request leaves the
// session unauthenticated.
func (s *Session) Acquire(ctx context.Context, clientID string, interactive bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clientID == "" {
		return "", &AuthError{Code: "missing_client_id", Err: errors.New("client id is required")}
	}
	if clientID != s.clientID {
		s.clearLocked()
		s.clientID = clientID
	}
	if s.stateLocked() == Valid {
		return s.token, nil
	}
	return s.requestLocked(ctx, interactive)
}

// Reauthorize discards the cached token and requests a new one
// interactively.
func (s *Session) Reauthorize(ctx context.Context, clientID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clientID == "" {
		return "", &AuthError{Code: "missing_client_id", Err: errors.New("client id is required")}
	}
	s.clearLocked()
	s.clientID = clientID
	return s.requestLocked(ctx, true)
}

func (s *Session) requestLocked(ctx context.Context, interactive bool) (string, error) {
	s.requests++
	g, err := s.requester.RequestToken(ctx, s.clientID, interactive)
	if err != nil {
		s.token, s.expiresAt = "", time.Time{}
		var aerr *AuthError
		if errors.As(err, &aerr) {
			return "", err
		}
		return "", &AuthError{Code: "token_request_failed", Err: err}
	}
	if g.AccessToken == "" {
		s.token, s.expiresAt = "", time.Time{}
		return "", &AuthError{Code: "invalid_response", Err: errors.New("provider returned no access token")}
	}
	ttl := g.ExpiresIn
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.token = g.AccessToken
	s.expiresAt = s.now().Add(ttl)
	return s.token, nil
}

// State reports where the credential is in its lifecycle.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.token == "" {
		return Unauthenticated
	}
	if s.now().Before(s.expiresAt.Add(-SafetyMargin)) {
		return Valid
	}
	return Expired
}

// ExpiresAt returns the expiry of the cached token, or the zero time.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// ClientID returns the client the session last acquired for.
func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// Requests returns how many credential requests the session has made.
func (s *Session) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Clear forgets the cached token and client.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.clientID = ""
}

func (s *Session) clearLocked() {
	s.token = ""
	s.expiresAt = time.Time{}
}

// For binds the session to clientID for an authenticated HTTP client.
func (s *Session) For(clientID string) *Credentials {
	return &Credentials{session: s, clientID: clientID}
}

// Credentials supplies tokens for one client id. Token takes the silent path
// when it can and Refresh forces an interactive renewal.
type Credentials struct {
	session  *Session
	clientID string
}

// Token returns a usable token, requesting one interactively only when the
// session has none for this client.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	interactive := c.session.State() == Unauthenticated || c.session.ClientID() != c.clientID
	return c.session.Acquire(ctx, c.clientID, interactive)
}

// Refresh discards the current token and re-acquires interactively.
func (c *Credentials) Refresh(ctx context.Context) (string, error) {
	return c.session.Reauthorize(ctx, c.clientID)
}
