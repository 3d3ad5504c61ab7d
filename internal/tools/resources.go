package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// --- Input types ---

type ListResourcesInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only resources in this category"`
	Query    string `json:"query,omitempty" jsonschema:"Full-text search over title, file name and Drive path"`
}

type CreateResourceInput struct {
	Title    string     `json:"title" jsonschema:"Resource title"`
	Category string     `json:"category,omitempty" jsonschema:"Category, e.g. Briefs or Case files (default Other)"`
	File     *FileInput `json:"file,omitempty" jsonschema:"Optional attachment"`
}

type UpdateResourceInput struct {
	ID       string `json:"id" jsonschema:"Resource id"`
	Title    string `json:"title,omitempty" jsonschema:"New title (unchanged when empty)"`
	Category string `json:"category,omitempty" jsonschema:"New category (unchanged when empty)"`
}

// --- Handlers ---

func (t *Tools) ListResources(ctx context.Context, _ *mcp.CallToolRequest, input ListResourcesInput) (*mcp.CallToolResult, any, error) {
	st := t.App.Store
	var resources []models.Resource
	if input.Query != "" {
		found, err := st.SearchResources(ctx, input.Query)
		if err != nil {
			return toolFailure("Search failed", err), nil, nil
		}
		for _, r := range found {
			if input.Category == "" || r.Category == input.Category {
				resources = append(resources, r)
			}
		}
	} else if input.Category != "" {
		resources = st.ResourcesByCategory(input.Category)
	} else {
		resources = st.Resources()
	}
	return toolJSON(orEmpty(resources))
}

func (t *Tools) CreateResource(ctx context.Context, _ *mcp.CallToolRequest, input CreateResourceInput) (*mcp.CallToolResult, any, error) {
	up, err := input.File.upload()
	if err != nil {
		return toolFailure("Failed to create resource", err), nil, nil
	}
	r, err := t.App.CreateLocalResource(ctx, input.Title, input.Category, up)
	if err != nil {
		return toolFailure("Failed to create resource", err), nil, nil
	}
	return toolJSON(r)
}

func (t *Tools) UpdateResource(ctx context.Context, _ *mcp.CallToolRequest, input UpdateResourceInput) (*mcp.CallToolResult, any, error) {
	r, err := t.App.Store.Resource(input.ID)
	if err != nil {
		return toolFailure("Failed to update resource", err), nil, nil
	}
	if input.Title != "" {
		r.Title = input.Title
	}
	if input.Category != "" {
		r.Category = input.Category
	}
	r, err = t.App.Store.UpdateResource(ctx, r)
	if err != nil {
		return toolFailure("Failed to update resource", err), nil, nil
	}
	return toolJSON(r)
}

func (t *Tools) DeleteResource(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	removed, err := t.App.Store.DeleteResource(ctx, input.ID)
	return deleted("resource", input.ID, removed, err)
}
