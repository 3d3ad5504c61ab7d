package tools

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/app"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/session"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

// Minimum lengths of free-text fields entered through the tools.
const (
	MinSpeechContent = 40
	MinSkillTarget   = 20
	MinReflection    = 20
)

// Tools holds the references every tool handler needs.
type Tools struct {
	App *app.App
	// Clock resolves relative dates. Nil means time.Now.
	Clock func() time.Time
}

func (t *Tools) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

// FileInput is an attachment carried inline in a tool call.
type FileInput struct {
	Name          string `json:"name" jsonschema:"File name including extension"`
	MediaType     string `json:"media_type,omitempty" jsonschema:"MIME type, e.g. application/pdf"`
	ContentBase64 string `json:"content_base64" jsonschema:"File content, base64 encoded"`
}

type IDInput struct {
	ID string `json:"id" jsonschema:"Record id"`
}

func (f *FileInput) upload() (*app.Upload, error) {
	if f == nil {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(f.ContentBase64)
	if err != nil {
		return nil, &storage.ValidationError{Field: "file", Reason: "content_base64 is not valid base64"}
	}
	return &app.Upload{Name: f.Name, MediaType: f.MediaType, Data: data}, nil
}

func minLength(field, value string, n int) *mcp.CallToolResult {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
		return toolError("%s must be at least %d characters", field, n)
	}
	return nil
}

// --- Helpers ---

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// toolFailure renders err for the caller. Auth and Drive failures get a
// message naming the provider's code or status.
func toolFailure(action string, err error) *mcp.CallToolResult {
	var aerr *session.AuthError
	var apiErr *drive.APIError
	switch {
	case errors.As(err, &aerr):
		return toolError("%s: authorization failed (%s)", action, aerr.Code)
	case errors.As(err, &apiErr):
		return toolError("%s: Google Drive answered %d: %s", action, apiErr.Status, apiErr.Message)
	default:
		return toolError("%s: %v", action, err)
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func deleted(kind, id string, removed bool, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolFailure("Failed to delete "+kind, err), nil, nil
	}
	if !removed {
		return toolError("Failed to delete %s: %s %q: %v", kind, kind, id, storage.ErrNotFound), nil, nil
	}
	return toolText(fmt.Sprintf("Deleted %s %s.", kind, id)), nil, nil
}

// orEmpty keeps empty lists as [] in JSON output.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
