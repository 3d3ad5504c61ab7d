package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/app"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/tools"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// New creates a fully configured MCP server with all tools registered.
func New(a *app.App) *mcp.Server {
	t := &tools.Tools{App: a}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "debate-vault",
		Version: Version,
	}, nil)

	// Resources
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_resources",
		Description: "List study resources, newest first, optionally filtered by category or a full-text query",
	}, t.ListResources)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_resource",
		Description: "Create a local resource with an optional attachment (PDF, Word, text, markdown, PNG, JPEG or WebP, at most 8 MiB)",
	}, t.CreateResource)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_resource",
		Description: "Change the title or category of a resource",
	}, t.UpdateResource)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_resource",
		Description: "Delete a resource and its attachment",
	}, t.DeleteResource)

	// Speeches
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_speeches",
		Description: "List practice speeches, optionally filtered by role or a full-text query",
	}, t.ListSpeeches)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_speech",
		Description: "Save a practice speech with an optional attachment",
	}, t.CreateSpeech)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_speech",
		Description: "Edit the motion, role, content or notes of a speech",
	}, t.UpdateSpeech)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_speech",
		Description: "Delete a speech and its attachment",
	}, t.DeleteSpeech)

	// Skills
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_skills",
		Description: "List skill self-assessments, newest first",
	}, t.ListSkills)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "log_skill",
		Description: "Record a 1-10 self-assessment of a skill with an improvement target",
	}, t.LogSkill)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_skill",
		Description: "Edit a skill entry",
	}, t.UpdateSkill)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_skill",
		Description: "Delete a skill entry",
	}, t.DeleteSkill)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "skill_insights",
		Description: "Per-skill averages, the weakest skill and the average of the last five scores",
	}, t.SkillInsights)

	// Evaluations
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_evaluations",
		Description: "List round evaluations, optionally within a date range or matching a full-text query",
	}, t.ListEvaluations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "log_evaluation",
		Description: "Score a debate round on nine sub-scores; category scores and the total out of 300 are derived",
	}, t.LogEvaluation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_evaluation",
		Description: "Edit a round evaluation; the total is recomputed",
	}, t.UpdateEvaluation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_evaluation",
		Description: "Delete a round evaluation",
	}, t.DeleteEvaluation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "evaluation_insights",
		Description: "Latest, average and best totals, change since the first round and the latest action item",
	}, t.EvaluationInsights)

	// Data
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "dashboard",
		Description: "Overview counts, best round total and recent skill average",
	}, t.Dashboard)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search",
		Description: "Full-text search across resources, speeches and evaluations",
	}, t.Search)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "export_backup",
		Description: "Export every record, setting and attachment as a backup document",
	}, t.ExportBackup)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "import_backup",
		Description: "Restore a backup document, replacing all existing data (irreversible)",
	}, t.ImportBackup)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_settings",
		Description: "Read every stored setting",
	}, t.GetSettings)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "set_setting",
		Description: "Store a setting such as themePreset",
	}, t.SetSetting)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "download_attachment",
		Description: "Fetch an attachment's bytes and suggested file name",
	}, t.DownloadAttachment)

	// Google Drive
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_status",
		Description: "Show the Google Drive credential state",
	}, t.DriveStatus)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_connect",
		Description: "Authorize Google Drive read access in the browser",
	}, t.DriveConnect)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_import",
		Description: "Import every file below a Drive folder as resources; re-running updates existing ones",
	}, t.DriveImport)

	return srv
}
