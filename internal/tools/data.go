package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/backup"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/insights"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// --- Input types ---

type SearchInput struct {
	Query string `json:"query" jsonschema:"Words to look for; each word matches as a prefix"`
}

type ExportBackupInput struct {
	Path string `json:"path,omitempty" jsonschema:"Write the backup to this file instead of returning it"`
}

type ImportBackupInput struct {
	Path     string `json:"path,omitempty" jsonschema:"Backup file to restore"`
	Snapshot string `json:"snapshot,omitempty" jsonschema:"Backup document as JSON text, used when path is empty"`
}

type SetSettingInput struct {
	Key   string `json:"key" jsonschema:"Setting key, e.g. themePreset"`
	Value any    `json:"value" jsonschema:"Any JSON value"`
}

type DownloadAttachmentInput struct {
	FileID     string `json:"file_id" jsonschema:"Attachment id (the fileId of a resource or speech)"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"Save to this path; a directory gets the stored file name"`
}

// --- Handlers ---

func (t *Tools) Dashboard(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	st := t.App.Store
	return toolJSON(insights.BuildDashboard(insights.Counts{
		Resources:   st.Resources(),
		Speeches:    st.Speeches(),
		Skills:      st.Skills(),
		Evaluations: st.Evaluations(),
	}))
}

func (t *Tools) Search(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return toolError("Query is required"), nil, nil
	}
	st := t.App.Store
	resources, err := st.SearchResources(ctx, input.Query)
	if err != nil {
		return toolFailure("Search failed", err), nil, nil
	}
	speeches, err := st.SearchSpeeches(ctx, input.Query)
	if err != nil {
		return toolFailure("Search failed", err), nil, nil
	}
	evals, err := st.SearchEvaluations(ctx, input.Query)
	if err != nil {
		return toolFailure("Search failed", err), nil, nil
	}
	return toolJSON(struct {
		Resources   []models.Resource   `json:"resources"`
		Speeches    []models.Speech     `json:"speeches"`
		Evaluations []models.Evaluation `json:"evaluations"`
	}{orEmpty(resources), orEmpty(speeches), orEmpty(evals)})
}

func (t *Tools) ExportBackup(ctx context.Context, _ *mcp.CallToolRequest, input ExportBackupInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" {
		snap, err := backup.Export(ctx, t.App.Store)
		if err != nil {
			return toolFailure("Export failed", err), nil, nil
		}
		var buf bytes.Buffer
		if err := backup.Encode(&buf, snap); err != nil {
			return toolFailure("Export failed", err), nil, nil
		}
		return toolText(buf.String()), nil, nil
	}

	path := input.Path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, backup.FileName(t.now()))
	}
	snap, err := backup.WriteFile(ctx, t.App.Store, path)
	if err != nil {
		return toolFailure("Export failed", err), nil, nil
	}
	return toolText(fmt.Sprintf("Exported %d resources, %d speeches, %d skills, %d evaluations and %d files to %s.",
		len(snap.Resources), len(snap.Speeches), len(snap.Skills), len(snap.Evaluations), len(snap.Files), path)), nil, nil
}

func (t *Tools) ImportBackup(ctx context.Context, _ *mcp.CallToolRequest, input ImportBackupInput) (*mcp.CallToolResult, any, error) {
	var (
		snap *backup.Snapshot
		err  error
	)
	switch {
	case input.Path != "":
		snap, err = backup.ReadFile(input.Path)
	case input.Snapshot != "":
		snap, err = backup.Decode(bytes.NewReader([]byte(input.Snapshot)))
	default:
		return toolError("Either path or snapshot is required"), nil, nil
	}
	if err != nil {
		return toolFailure("Import failed", err), nil, nil
	}
	if err := backup.Import(ctx, t.App.Store, snap); err != nil {
		return toolFailure("Import failed", err), nil, nil
	}
	t.App.Logger().Info("backup imported", "resources", len(snap.Resources), "files", len(snap.Files))
	return toolText(fmt.Sprintf("Imported %d resources, %d speeches, %d skills, %d evaluations and %d files. Previous data was replaced.",
		len(snap.Resources), len(snap.Speeches), len(snap.Skills), len(snap.Evaluations), len(snap.Files))), nil, nil
}

func (t *Tools) GetSettings(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.App.Store.Settings())
}

func (t *Tools) SetSetting(ctx context.Context, _ *mcp.CallToolRequest, input SetSettingInput) (*mcp.CallToolResult, any, error) {
	if input.Key == "" {
		return toolError("Setting key is required"), nil, nil
	}
	if err := t.App.Store.SetSetting(ctx, input.Key, input.Value); err != nil {
		return toolFailure("Failed to save setting", err), nil, nil
	}
	return toolText(fmt.Sprintf("Saved setting %q.", input.Key)), nil, nil
}

func (t *Tools) DownloadAttachment(ctx context.Context, _ *mcp.CallToolRequest, input DownloadAttachmentInput) (*mcp.CallToolResult, any, error) {
	att, err := t.App.DownloadAttachment(ctx, input.FileID)
	if err != nil {
		return toolFailure("Download failed", err), nil, nil
	}
	if input.OutputPath == "" {
		return toolJSON(map[string]any{
			"name":           att.Name,
			"media_type":     att.MediaType,
			"size":           len(att.Data),
			"content_base64": base64.StdEncoding.EncodeToString(att.Data),
		})
	}

	path := input.OutputPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, filepath.Base(att.Name))
	}
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return toolFailure("Download failed", err), nil, nil
	}
	return toolText(fmt.Sprintf("Saved %s (%s) to %s.", att.Name, humanize.IBytes(uint64(len(att.Data))), path)), nil, nil
}
