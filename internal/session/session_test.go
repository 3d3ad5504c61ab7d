package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive/drivetest"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/session"
)

type fakeClock struct{ now time.Time }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func grant(tok string, ttl time.Duration) session.Grant {
	return session.Grant{AccessToken: tok, ExpiresIn: ttl}
}

type recorder struct {
	calls       int
	interactive []bool
	next        func(n int) (session.Grant, error)
}

func (r *recorder) RequestToken(_ context.Context, _ string, interactive bool) (session.Grant, error) {
	r.calls++
	r.interactive = append(r.interactive, interactive)
	return r.next(r.calls)
}

func TestCachedTokenReusedWithoutRequest(t *testing.T) {
	clock := newClock()
	rec := &recorder{next: func(int) (session.Grant, error) { return grant("tok-1", time.Hour), nil }}
	s := session.New(rec, session.WithClock(clock.Now))

	assert.Equal(t, session.Unauthenticated, s.State())

	tok, err := s.Acquire(context.Background(), "client", true)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, session.Valid, s.State())
	assert.Equal(t, clock.now.Add(time.Hour), s.ExpiresAt())

	clock.Advance(59 * time.Minute)
	tok, err = s.Acquire(context.Background(), "client", false)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, 1, rec.calls, "silent path must not contact the provider")
}

func TestExpiredTokenTriggersRequest(t *testing.T) {
	clock := newClock()
	rec := &recorder{next: func(n int) (session.Grant, error) {
		return grant([]string{"", "tok-1", "tok-2"}[n], time.Minute), nil
	}}
	s := session.New(rec, session.WithClock(clock.Now))

	_, err := s.Acquire(context.Background(), "client", true)
	require.NoError(t, err)

	// 60s lifetime minus the 30s margin leaves 30s of silent reuse.
	clock.Advance(29 * time.Second)
	assert.Equal(t, session.Valid, s.State())
	clock.Advance(2 * time.Second)
	assert.Equal(t, session.Expired, s.State())

	tok, err := s.Acquire(context.Background(), "client", false)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, []bool{true, false}, rec.interactive)
}

func TestDefaultTTL(t *testing.T) {
	clock := newClock()
	rec := &recorder{next: func(int) (session.Grant, error) { return grant("tok", 0), nil }}
	s := session.New(rec, session.WithClock(clock.Now))

	_, err := s.Acquire(context.Background(), "client", true)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(session.DefaultTTL), s.ExpiresAt())
}

func TestFailedRequestClearsToken(t *testing.T) {
	clock := newClock()
	rec := &recorder{next: func(n int) (session.Grant, error) {
		if n == 1 {
			return grant("tok-1", time.Minute), nil
		}
		return session.Grant{}, &session.AuthError{Code: "access_denied"}
	}}
	s := session.New(rec, session.WithClock(clock.Now))

	_, err := s.Acquire(context.Background(), "client", true)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	_, err = s.Acquire(context.Background(), "client", false)
	var aerr *session.AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "access_denied", aerr.Code)
	assert.Equal(t, session.Unauthenticated, s.State())
	assert.True(t, s.ExpiresAt().IsZero())
}

func TestNonProviderErrorBecomesAuthError(t *testing.T) {
	rec := &recorder{next: func(int) (session.Grant, error) { return session.Grant{}, errors.New("connection reset") }}
	s := session.New(rec)

	_, err := s.Acquire(context.Background(), "client", true)
	var aerr *session.AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "token_request_failed", aerr.Code)

	rec.next = func(int) (session.Grant, error) { return session.Grant{}, nil }
	_, err = s.Acquire(context.Background(), "client", true)
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "invalid_response", aerr.Code)

	_, err = s.Acquire(context.Background(), "", true)
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "missing_client_id", aerr.Code)
}

func TestSwitchingClientDiscardsToken(t *testing.T) {
	rec := &recorder{next: func(n int) (session.Grant, error) {
		return grant([]string{"", "tok-a", "tok-b"}[n], time.Hour), nil
	}}
	s := session.New(rec)

	tok, err := s.Acquire(context.Background(), "client-a", true)
	require.NoError(t, err)
	assert.Equal(t, "tok-a", tok)

	tok, err = s.Acquire(context.Background(), "client-b", true)
	require.NoError(t, err)
	assert.Equal(t, "tok-b", tok)
	assert.Equal(t, "client-b", s.ClientID())
	assert.Equal(t, 2, rec.calls)
}

func TestCredentials(t *testing.T) {
	rec := &recorder{next: func(n int) (session.Grant, error) {
		return grant([]string{"", "tok-1", "tok-2"}[n], time.Hour), nil
	}}
	s := session.New(rec)
	creds := s.For("client")

	tok, err := creds.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	tok, err = creds.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = creds.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, []bool{true, true}, rec.interactive)
}

func newLoopback(srv *drivetest.Server) *session.LoopbackRequester {
	return session.NewLoopbackRequester(session.LoopbackConfig{
		AuthURL:    srv.AuthURL(),
		TokenURL:   srv.TokenURL(),
		OpenURL:    srv.OpenURL,
		HTTPClient: srv.Client(),
		Timeout:    5 * time.Second,
	})
}

func TestLoopbackFlow(t *testing.T) {
	srv := drivetest.New()
	defer srv.Close()
	req := newLoopback(srv)

	g, err := req.RequestToken(context.Background(), drivetest.DefaultClientID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, g.AccessToken)
	assert.InDelta(t, time.Hour.Seconds(), g.ExpiresIn.Seconds(), 5)
	assert.Equal(t, "consent", srv.LastPrompt())

	// Silent renewal goes through the refresh grant.
	g2, err := req.RequestToken(context.Background(), drivetest.DefaultClientID, false)
	require.NoError(t, err)
	assert.NotEqual(t, g.AccessToken, g2.AccessToken)

	stats := srv.Stats()
	assert.Equal(t, 1, stats.Authorizations)
	assert.Equal(t, 2, stats.TokenGrants)
	assert.Equal(t, 1, stats.Refreshes)
}

func TestLoopbackSilentWithoutRefreshToken(t *testing.T) {
	srv := drivetest.New()
	defer srv.Close()
	req := newLoopback(srv)

	_, err := req.RequestToken(context.Background(), drivetest.DefaultClientID, false)
	require.NoError(t, err)
	assert.Equal(t, "", srv.LastPrompt(), "non-interactive requests do not force consent")
	assert.Equal(t, 1, srv.Stats().Authorizations)
}

func TestLoopbackDenied(t *testing.T) {
	srv := drivetest.New()
	defer srv.Close()
	srv.DenyConsent(true)

	s := session.New(newLoopback(srv))
	_, err := s.Acquire(context.Background(), drivetest.DefaultClientID, true)

	var aerr *session.AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "access_denied", aerr.Code)
	assert.Equal(t, session.Unauthenticated, s.State())
}
