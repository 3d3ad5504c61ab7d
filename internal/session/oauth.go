package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DriveReadonlyScope grants read access to the user's Drive files.
const DriveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

// Google's OAuth 2.0 endpoints.
const (
	GoogleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenURL = "https://oauth2.googleapis.com/token"
)

// LoopbackConfig configures the browser-based authorization code flow.
type LoopbackConfig struct {
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	// RedirectPort is the loopback port for the callback; 0 picks a free one.
	RedirectPort int
	// OpenURL shows the authorization page to the user.
	OpenURL func(url string) error
	// Timeout bounds how long the flow waits for the callback.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// LoopbackRequester obtains tokens with the OAuth 2.0 authorization code
// flow, PKCE (S256) and a loopback redirect. Refresh tokens are kept in
// memory per client and used for non-interactive requests.
type LoopbackRequester struct {
	cfg LoopbackConfig

	mu      sync.Mutex
	refresh map[string]string
}

// NewLoopbackRequester fills unset config fields with Google defaults.
func NewLoopbackRequester(cfg LoopbackConfig) *LoopbackRequester {
	if cfg.AuthURL == "" {
		cfg.AuthURL = GoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleTokenURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{DriveReadonlyScope}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &LoopbackRequester{cfg: cfg, refresh: make(map[string]string)}
}

// RequestToken implements Requester.
func (r *LoopbackRequester) RequestToken(ctx context.Context, clientID string, interactive bool) (Grant, error) {
	if r.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.cfg.HTTPClient)
	}

	if !interactive {
		if rt := r.refreshToken(clientID); rt != "" {
			g, err := r.refreshGrant(ctx, clientID, rt)
			if err == nil {
				return g, nil
			}
			r.cfg.Logger.Debug("silent refresh failed, falling back to authorization", "client_id", clientID, "error", err)
		}
	}
	return r.authorize(ctx, clientID, interactive)
}

func (r *LoopbackRequester) oauthConfig(clientID, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: r.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   r.cfg.AuthURL,
			TokenURL:  r.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      r.cfg.Scopes,
	}
}

func (r *LoopbackRequester) refreshGrant(ctx context.Context, clientID, refreshToken string) (Grant, error) {
	conf := r.oauthConfig(clientID, "")
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		r.forget(clientID)
		return Grant{}, providerError(err)
	}
	return r.grant(clientID, tok), nil
}

type callbackResult struct {
	code string
	err  error
}

func (r *LoopbackRequester) authorize(ctx context.Context, clientID string, interactive bool) (Grant, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", r.cfg.RedirectPort))
	if err != nil {
		return Grant{}, fmt.Errorf("listen for callback: %w", err)
	}
	redirectURL := "http://" + ln.Addr().String() + "/callback"
	conf := r.oauthConfig(clientID, redirectURL)

	state := randomHex(16)
	verifier := oauth2.GenerateVerifier()
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)}
	if interactive {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	authURL := conf.AuthCodeURL(state, opts...)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = &AuthError{Code: "state_mismatch", Err: errors.New("callback state does not match")}
		case q.Get("error") != "":
			res.err = &AuthError{Code: q.Get("error"), Err: errors.New(q.Get("error_description"))}
		case q.Get("code") == "":
			res.err = &AuthError{Code: "invalid_response", Err: errors.New("callback carried no code")}
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte("Authorization complete. You can close this window."))
		}
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer srv.Close()

	r.cfg.Logger.Info("waiting for authorization", "client_id", clientID, "interactive", interactive)
	if r.cfg.OpenURL != nil {
		if err := r.cfg.OpenURL(authURL); err != nil {
			return Grant{}, fmt.Errorf("open authorization page: %w", err)
		}
	} else {
		r.cfg.Logger.Info("open this URL to authorize", "url", authURL)
	}

	timer := time.NewTimer(r.cfg.Timeout)
	defer timer.Stop()

	var res callbackResult
	select {
	case res = <-results:
	case <-timer.C:
		return Grant{}, &AuthError{Code: "timeout", Err: fmt.Errorf("no authorization within %s", r.cfg.Timeout)}
	case <-ctx.Done():
		return Grant{}, ctx.Err()
	}
	if res.err != nil {
		return Grant{}, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Grant{}, providerError(err)
	}
	return r.grant(clientID, tok), nil
}

func (r *LoopbackRequester) grant(clientID string, tok *oauth2.Token) Grant {
	if tok.RefreshToken != "" {
		r.mu.Lock()
		r.refresh[clientID] = tok.RefreshToken
		r.mu.Unlock()
	}
	var ttl time.Duration
	if !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry)
	}
	return Grant{AccessToken: tok.AccessToken, ExpiresIn: ttl}
}

func (r *LoopbackRequester) refreshToken(clientID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refresh[clientID]
}

func (r *LoopbackRequester) forget(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, clientID)
}

// providerError maps a token endpoint failure onto AuthError, keeping the
// provider's error code.
func providerError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		code := rerr.ErrorCode
		if code == "" {
			code = fmt.Sprintf("http_%d", rerr.Response.StatusCode)
		}
		return &AuthError{Code: code, Err: err}
	}
	return &AuthError{Code: "token_request_failed", Err: err}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
