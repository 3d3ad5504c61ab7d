// Package drivetest runs an in-process fake of the Google identity provider
// and the Drive v3 API for tests.
package drivetest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// DefaultClientID is registered on every new server.
const DefaultClientID = "test-client.apps.googleusercontent.com"

const nativePrefix = "application/vnd.google-apps."

// Stats counts the requests the server has handled.
type Stats struct {
	Authorizations int
	TokenGrants    int
	Refreshes      int
	Unauthorized   int
	Listings       int
	Downloads      int
}

type item struct {
	id       string
	name     string
	mimeType string
	parent   string
	modified string
	content  []byte
	trashed  bool
}

type authCode struct {
	clientID      string
	redirectURI   string
	codeChallenge string
	createdAt     time.Time
}

// Server is the fake provider. Configure it before use; all methods are safe
// for concurrent use.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	clients       map[string]bool
	codes         map[string]*authCode
	refreshTokens map[string]string
	tokens        map[string]time.Time
	items         map[string]*item
	order         []string
	failures      map[string]int
	ttl           time.Duration
	pageSize      int
	deny          bool
	lastPrompt    string
	stats         Stats
}

// New starts a fake with an empty tree and DefaultClientID registered.
func New() *Server {
	s := &Server{
		clients:       map[string]bool{DefaultClientID: true},
		codes:         make(map[string]*authCode),
		refreshTokens: make(map[string]string),
		tokens:        make(map[string]time.Time),
		items:         make(map[string]*item),
		failures:      make(map[string]int),
		ttl:           time.Hour,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /o/oauth2/auth", s.handleAuthorize)
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("GET /drive/v3/files", s.authorized(s.handleList))
	mux.HandleFunc("GET /drive/v3/files/{id}", s.authorized(s.handleFile))
	mux.HandleFunc("GET /drive/v3/files/{id}/export", s.authorized(s.handleExport))
	s.Server = httptest.NewServer(mux)
	return s
}

// AuthURL is the authorization endpoint.
func (s *Server) AuthURL() string { return s.URL + "/o/oauth2/auth" }

// TokenURL is the token endpoint.
func (s *Server) TokenURL() string { return s.URL + "/token" }

// APIBase is the Drive API root.
func (s *Server) APIBase() string { return s.URL + "/drive/v3" }

// RegisterClient allows another client id.
func (s *Server) RegisterClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[id] = true
}

// SetTTL sets the lifetime of issued access tokens.
func (s *Server) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// SetPageSize caps listing pages regardless of the requested size.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// DenyConsent makes the authorization endpoint answer access_denied.
func (s *Server) DenyConsent(deny bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deny = deny
}

// LastPrompt returns the prompt parameter of the latest authorization.
func (s *Server) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

// Stats returns a copy of the request counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// AddFolder adds a folder under parentID ("" for a top-level folder).
func (s *Server) AddFolder(parentID, id, name string) {
	s.add(&item{id: id, name: name, mimeType: "application/vnd.google-apps.folder", parent: parentID})
}

// AddFile adds a file under parentID. Native document types are served
// through the export endpoint only.
func (s *Server) AddFile(parentID, id, name, mimeType string, content []byte) {
	s.add(&item{id: id, name: name, mimeType: mimeType, parent: parentID, content: content, modified: "2024-01-01T00:00:00.000Z"})
}

// SetContent replaces a file's content and bumps its modified time.
func (s *Server) SetContent(id string, content []byte, modified string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.content = content
		it.modified = modified
	}
}

// Trash hides an item from listings.
func (s *Server) Trash(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.trashed = true
	}
}

// FailRequests makes every request for id (content, export, metadata or a
// folder listing) answer status.
func (s *Server) FailRequests(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = status
}

func (s *Server) add(it *item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[it.id]; !exists {
		s.order = append(s.order, it.id)
	}
	s.items[it.id] = it
}

// IssueToken mints an access token directly, bypassing the OAuth flow.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := randomHex(16)
	s.tokens[tok] = time.Now().Add(s.ttl)
	return tok
}

// RevokeTokens invalidates every access token issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
}

// OpenURL plays the browser: it follows the authorization redirect to the
// caller's loopback callback.
func (s *Server) OpenURL(authURL string) error {
	resp, err := s.Client().Get(authURL)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ── helpers ─────────────────────────────────────────────

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, status int, errCode, description string) {
	writeJSON(w, status, map[string]string{
		"error":             errCode,
		"error_description": description,
	})
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

func verifyPKCE(codeVerifier, codeChallenge string) bool {
	h := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(h[:]) == codeChallenge
}

// ── identity provider ───────────────────────────────────

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")

	s.mu.Lock()
	known := s.clients[clientID]
	deny := s.deny
	s.lastPrompt = q.Get("prompt")
	s.stats.Authorizations++
	s.mu.Unlock()

	if !known {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client", "Unknown client_id")
		return
	}
	if redirectURI == "" || q.Get("response_type") != "code" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uri and response_type=code are required")
		return
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "S256 code challenge required")
		return
	}

	params := url.Values{"state": {q.Get("state")}}
	if deny {
		params.Set("error", "access_denied")
		params.Set("error_description", "The user denied access")
	} else {
		code := randomHex(32)
		s.mu.Lock()
		s.codes[code] = &authCode{
			clientID:      clientID,
			redirectURI:   redirectURI,
			codeChallenge: q.Get("code_challenge"),
			createdAt:     time.Now(),
		}
		s.mu.Unlock()
		params.Set("code", code)
	}
	http.Redirect(w, r, redirectURI+"?"+params.Encode(), http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}
	switch grantType := r.FormValue("grant_type"); grantType {
	case "authorization_code":
		s.handleTokenAuthCode(w, r)
	case "refresh_token":
		s.handleTokenRefresh(w, r)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type",
			fmt.Sprintf("Unsupported grant_type: %s", grantType))
	}
}

func (s *Server) handleTokenAuthCode(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	clientID := r.FormValue("client_id")

	s.mu.Lock()
	ac, exists := s.codes[code]
	delete(s.codes, code)
	s.mu.Unlock()

	switch {
	case !exists || time.Since(ac.createdAt) > 5*time.Minute:
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid or expired authorization code")
	case ac.clientID != clientID:
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "client_id does not match")
	case ac.redirectURI != r.FormValue("redirect_uri"):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri does not match")
	case !verifyPKCE(r.FormValue("code_verifier"), ac.codeChallenge):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
	default:
		s.issue(w, clientID, false)
	}
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.FormValue("refresh_token")
	clientID := r.FormValue("client_id")

	s.mu.Lock()
	owner, exists := s.refreshTokens[refreshToken]
	delete(s.refreshTokens, refreshToken)
	s.mu.Unlock()

	if !exists || owner != clientID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid refresh token")
		return
	}
	s.issue(w, clientID, true)
}

func (s *Server) issue(w http.ResponseWriter, clientID string, refresh bool) {
	access, refreshToken := randomHex(16), randomHex(32)

	s.mu.Lock()
	ttl := s.ttl
	s.tokens[access] = time.Now().Add(ttl)
	s.refreshTokens[refreshToken] = clientID
	s.stats.TokenGrants++
	if refresh {
		s.stats.Refreshes++
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"token_type":    "Bearer",
		"expires_in":    int(ttl / time.Second),
		"refresh_token": refreshToken,
	})
}

// ── Drive API ───────────────────────────────────────────

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		token := ""
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			token = header[len(prefix):]
		}

		s.mu.Lock()
		expiry, ok := s.tokens[token]
		valid := ok && time.Now().Before(expiry)
		if !valid {
			s.stats.Unauthorized++
		}
		s.mu.Unlock()

		if !valid {
			writeAPIError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
			return
		}
		next(w, r)
	}
}

var parentQuery = regexp.MustCompile(`^'((?:[^'\\]|\\.)+)' in parents and trashed=false$`)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	m := parentQuery.FindStringSubmatch(r.URL.Query().Get("q"))
	if m == nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid Value")
		return
	}
	parent := m[1]

	s.mu.Lock()
	s.stats.Listings++
	failure := s.failures[parent]
	children := []map[string]any{}
	for _, id := range s.order {
		it := s.items[id]
		if it.parent != parent || it.trashed {
			continue
		}
		children = append(children, s.resource(it))
	}
	size := s.pageSize
	s.mu.Unlock()

	if failure != 0 {
		writeAPIError(w, failure, "listing failed")
		return
	}

	if requested, _ := strconv.Atoi(r.URL.Query().Get("pageSize")); requested > 0 && (size <= 0 || requested < size) {
		size = requested
	}
	if size <= 0 {
		size = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	offset = min(offset, len(children))
	end := min(offset+size, len(children))
	page := map[string]any{"files": children[offset:end]}
	if end < len(children) {
		page["nextPageToken"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, page)
}

// resource renders an item the way Drive does: size as a decimal string
// and only for binary files. The caller holds s.mu.
func (s *Server) resource(it *item) map[string]any {
	res := map[string]any{"id": it.id, "name": it.name, "mimeType": it.mimeType}
	if it.modified != "" {
		res["modifiedTime"] = it.modified
	}
	if !isNative(it.mimeType) {
		res["size"] = strconv.Itoa(len(it.content))
	}
	return res
}

func isNative(mimeType string) bool {
	return len(mimeType) > len(nativePrefix) && mimeType[:len(nativePrefix)] == nativePrefix
}

// lookup returns the item and any injected failure status for id.
func (s *Server) lookup(id string) (*item, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id], s.failures[id]
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	it, failure := s.lookup(id)
	if failure != 0 {
		writeAPIError(w, failure, "request failed")
		return
	}
	if it == nil || it.trashed {
		writeAPIError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	if r.URL.Query().Get("alt") != "media" {
		s.mu.Lock()
		res := s.resource(it)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, res)
		return
	}
	if isNative(it.mimeType) {
		writeAPIError(w, http.StatusForbidden, "Only files with binary content can be downloaded. Use Export with Docs Editors files.")
		return
	}
	s.serveContent(w, it.mimeType, it)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	it, failure := s.lookup(id)
	if failure != 0 {
		writeAPIError(w, failure, "request failed")
		return
	}
	if it == nil || it.trashed {
		writeAPIError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	if !isNative(it.mimeType) {
		writeAPIError(w, http.StatusForbidden, "Export only supports Docs Editors files.")
		return
	}
	mimeType := r.URL.Query().Get("mimeType")
	if mimeType == "" {
		writeAPIError(w, http.StatusBadRequest, "Required parameter: mimeType")
		return
	}
	s.serveContent(w, mimeType, it)
}

func (s *Server) serveContent(w http.ResponseWriter, mimeType string, it *item) {
	s.mu.Lock()
	s.stats.Downloads++
	content := append([]byte(nil), it.content...)
	s.mu.Unlock()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
