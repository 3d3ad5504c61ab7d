// Package drive reads folder trees and file content from the Google Drive v3
// API.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the Drive v3 API root.
const DefaultBaseURL = "https://www.googleapis.com/drive/v3"

// DefaultPageSize is the number of children requested per listing page.
const DefaultPageSize = 1000

// ErrTooLarge is returned by Download when content exceeds the limit.
var ErrTooLarge = errors.New("content exceeds size limit")

// APIError is a non-success response from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Drive API %d", e.Status)
	}
	return fmt.Sprintf("Drive API %d: %s", e.Status, e.Message)
}

// Credentials supplies bearer tokens. Refresh is called once after the
// provider rejects a token.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Client is an authenticated Drive API client.
type Client struct {
	http     *http.Client
	base     string
	creds    Credentials
	pageSize int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a client that authenticates every request with creds.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		http:     http.DefaultClient,
		base:     DefaultBaseURL,
		creds:    creds,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authenticated GET. A 401 triggers exactly one token
// refresh and retry; any other non-2xx status becomes an *APIError.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, rawURL, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		token, err = c.creds.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		if resp, err = c.do(ctx, rawURL, token); err != nil {
			return nil, err
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := ""
	if gjson.ValidBytes(body) {
		msg = gjson.GetBytes(body, "error.message").String()
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func (c *Client) fileURL(id string, params url.Values) string {
	params.Set("supportsAllDrives", "true")
	return c.base + "/files/" + url.PathEscape(id) + "?" + params.Encode()
}

// Metadata returns id, name and media type of one file or folder.
func (c *Client) Metadata(ctx context.Context, id string) (File, error) {
	resp, err := c.get(ctx, c.fileURL(id, url.Values{"fields": {"id,name,mimeType"}}))
	if err != nil {
		return File{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return File{}, fmt.Errorf("read metadata: %w", err)
	}
	return parseFile(gjson.ParseBytes(body)), nil
}

// Page is one page of a folder listing.
type Page struct {
	Files         []File
	NextPageToken string
}

// ListChildren returns one page of the non-trashed children of folderID.
func (c *Client) ListChildren(ctx context.Context, folderID, pageToken string) (Page, error) {
	params := url.Values{
		"q":                         {fmt.Sprintf("'%s' in parents and trashed=false", strings.ReplaceAll(folderID, "'", `\'`))},
		"fields":                    {"nextPageToken,files(id,name,mimeType,size,modifiedTime)"},
		"pageSize":                  {strconv.Itoa(c.pageSize)},
		"includeItemsFromAllDrives": {"true"},
		"supportsAllDrives":         {"true"},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	resp, err := c.get(ctx, c.base+"/files?"+params.Encode())
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read listing: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Page{}, &APIError{Status: resp.StatusCode, Message: "malformed listing response"}
	}

	doc := gjson.ParseBytes(body)
	var page Page
	doc.Get("files").ForEach(func(_, item gjson.Result) bool {
		page.Files = append(page.Files, parseFile(item))
		return true
	})
	page.NextPageToken = doc.Get("nextPageToken").String()
	return page, nil
}

// parseFile reads a Drive file resource. size arrives as a decimal string.
func parseFile(item gjson.Result) File {
	f := File{
		ID:           item.Get("id").String(),
		Name:         item.Get("name").String(),
		MimeType:     item.Get("mimeType").String(),
		Size:         item.Get("size").Int(),
		ModifiedTime: item.Get("modifiedTime").String(),
	}
	f.Kind, f.ExportType = Classify(f.MimeType)
	return f
}

// Download fetches the content described by spec. More than limit bytes
// yields ErrTooLarge and no data; limit <= 0 means unlimited.
func (c *Client) Download(ctx context.Context, spec DownloadSpec, limit int64) ([]byte, error) {
	resp, err := c.get(ctx, spec.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if limit > 0 && resp.ContentLength > limit {
		return nil, ErrTooLarge
	}
	r := io.Reader(resp.Body)
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// DownloadSpec resolves how to fetch f. ok is false for native documents
// that have no export mapping and for folders.
func (c *Client) DownloadSpec(f File) (spec DownloadSpec, ok bool) {
	switch f.Kind {
	case RegularFile:
		mediaType := f.MimeType
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		return DownloadSpec{
			URL:       c.fileURL(f.ID, url.Values{"alt": {"media"}}),
			Name:      f.Name,
			MediaType: mediaType,
		}, true
	case NativeDocument:
		if f.ExportType == "" {
			return DownloadSpec{}, false
		}
		return DownloadSpec{
			URL:       c.base + "/files/" + url.PathEscape(f.ID) + "/export?" + url.Values{"mimeType": {f.ExportType}, "supportsAllDrives": {"true"}}.Encode(),
			Name:      ExportName(f.Name, f.ExportType),
			MediaType: f.ExportType,
		}, true
	}
	return DownloadSpec{}, false
}
