package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// --- Input types ---

type ListSpeechesInput struct {
	Role  string `json:"role,omitempty" jsonschema:"Only speeches delivered in this role"`
	Query string `json:"query,omitempty" jsonschema:"Full-text search over motion, content and notes"`
}

type CreateSpeechInput struct {
	Motion  string     `json:"motion" jsonschema:"Debate motion"`
	Role    string     `json:"role" jsonschema:"Speaker role, e.g. First Proposition or Reply"`
	Content string     `json:"content" jsonschema:"Speech text (at least 40 characters)"`
	Notes   string     `json:"notes,omitempty" jsonschema:"Private notes"`
	File    *FileInput `json:"file,omitempty" jsonschema:"Optional attachment, e.g. a recording transcript"`
}

type UpdateSpeechInput struct {
	ID      string  `json:"id" jsonschema:"Speech id"`
	Motion  string  `json:"motion,omitempty" jsonschema:"New motion (unchanged when empty)"`
	Role    string  `json:"role,omitempty" jsonschema:"New role (unchanged when empty)"`
	Content string  `json:"content,omitempty" jsonschema:"New speech text (unchanged when empty)"`
	Notes   *string `json:"notes,omitempty" jsonschema:"New notes (unchanged when absent)"`
}

// --- Handlers ---

func (t *Tools) ListSpeeches(ctx context.Context, _ *mcp.CallToolRequest, input ListSpeechesInput) (*mcp.CallToolResult, any, error) {
	st := t.App.Store
	var speeches []models.Speech
	if input.Query != "" {
		found, err := st.SearchSpeeches(ctx, input.Query)
		if err != nil {
			return toolFailure("Search failed", err), nil, nil
		}
		for _, sp := range found {
			if input.Role == "" || sp.Role == input.Role {
				speeches = append(speeches, sp)
			}
		}
	} else if input.Role != "" {
		speeches = st.SpeechesByRole(input.Role)
	} else {
		speeches = st.Speeches()
	}
	return toolJSON(orEmpty(speeches))
}

func (t *Tools) CreateSpeech(ctx context.Context, _ *mcp.CallToolRequest, input CreateSpeechInput) (*mcp.CallToolResult, any, error) {
	if res := minLength("content", input.Content, MinSpeechContent); res != nil {
		return res, nil, nil
	}
	up, err := input.File.upload()
	if err != nil {
		return toolFailure("Failed to create speech", err), nil, nil
	}
	sp, err := t.App.CreateSpeech(ctx, models.Speech{
		Motion:  input.Motion,
		Role:    input.Role,
		Content: input.Content,
		Notes:   input.Notes,
	}, up)
	if err != nil {
		return toolFailure("Failed to create speech", err), nil, nil
	}
	return toolJSON(sp)
}

func (t *Tools) UpdateSpeech(ctx context.Context, _ *mcp.CallToolRequest, input UpdateSpeechInput) (*mcp.CallToolResult, any, error) {
	sp, err := t.App.Store.Speech(input.ID)
	if err != nil {
		return toolFailure("Failed to update speech", err), nil, nil
	}
	if input.Content != "" {
		if res := minLength("content", input.Content, MinSpeechContent); res != nil {
			return res, nil, nil
		}
		sp.Content = input.Content
	}
	if input.Motion != "" {
		sp.Motion = input.Motion
	}
	if input.Role != "" {
		sp.Role = input.Role
	}
	if input.Notes != nil {
		sp.Notes = *input.Notes
	}
	sp, err = t.App.Store.UpdateSpeech(ctx, sp)
	if err != nil {
		return toolFailure("Failed to update speech", err), nil, nil
	}
	return toolJSON(sp)
}

func (t *Tools) DeleteSpeech(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	removed, err := t.App.Store.DeleteSpeech(ctx, input.ID)
	return deleted("speech", input.ID, removed, err)
}
