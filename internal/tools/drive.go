package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// --- Input types ---

type DriveConnectInput struct {
	ClientID string `json:"client_id,omitempty" jsonschema:"Google OAuth client id (defaults to the remembered one)"`
}

type DriveImportInput struct {
	ClientID string `json:"client_id,omitempty" jsonschema:"Google OAuth client id (defaults to the remembered one)"`
	Folder   string `json:"folder" jsonschema:"Drive folder id or share link"`
}

// --- Handlers ---

func (t *Tools) DriveStatus(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.App.Status())
}

func (t *Tools) DriveConnect(ctx context.Context, _ *mcp.CallToolRequest, input DriveConnectInput) (*mcp.CallToolResult, any, error) {
	status, err := t.App.ConnectDrive(ctx, input.ClientID)
	if err != nil {
		return toolFailure("Failed to connect Google Drive", err), nil, nil
	}
	return toolJSON(status)
}

func (t *Tools) DriveImport(ctx context.Context, _ *mcp.CallToolRequest, input DriveImportInput) (*mcp.CallToolResult, any, error) {
	logger := t.App.Logger()
	res, err := t.App.ImportDriveFolder(ctx, input.ClientID, input.Folder, func(p models.SyncResult) {
		logger.Debug("drive import progress", "discovered", p.Total, "imported", p.Imported, "updated", p.Updated, "skipped", p.Skipped)
	})
	if err != nil {
		if res.Total > 0 {
			return toolError("Drive import stopped after %d files (%d imported, %d updated, %d skipped): %v",
				res.Total, res.Imported, res.Updated, res.Skipped, err), nil, nil
		}
		return toolFailure("Drive import failed", err), nil, nil
	}
	return toolJSON(struct {
		models.SyncResult
		Message string `json:"message"`
	}{res, fmt.Sprintf("Drive import finished: %d imported, %d updated, %d skipped.", res.Imported, res.Updated, res.Skipped)})
}
