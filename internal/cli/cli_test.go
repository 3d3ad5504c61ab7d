package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/backup"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive/drivetest"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedSkill(t *testing.T, dir, name string) {
	t.Helper()
	st, err := storage.Open(context.Background(), dir)
	require.NoError(t, err)
	_, err = st.CreateSkill(context.Background(), models.Skill{
		Skill: name, Score: 6, Target: "Answer the strongest argument first",
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "debate-vault", cmd.Use)

	for _, path := range [][]string{
		{"serve"}, {"export"}, {"import"}, {"list"},
		{"drive", "status"}, {"drive", "connect"}, {"drive", "import"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	dataDir := cmd.PersistentFlags().Lookup("data-dir")
	require.NotNil(t, dataDir)
	assert.Equal(t, "./data", dataDir.DefValue)

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "stdio", serve.Flags().Lookup("transport").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "--data-dir", t.TempDir(), "--format", "xml", "list", "skills")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "--data-dir", t.TempDir(), "serve", "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListEmpty(t *testing.T) {
	out, _, err := execute(t, &RootOptions{}, "--data-dir", t.TempDir(), "list", "resources")
	require.NoError(t, err)
	assert.Equal(t, "No resources.\n", out)
}

func TestListUnknownCollection(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "--data-dir", t.TempDir(), "list", "tournaments")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListFormats(t *testing.T) {
	dir := t.TempDir()
	seedSkill(t, dir, "Rebuttal")

	out, _, err := execute(t, &RootOptions{}, "--data-dir", dir, "list", "skills")
	require.NoError(t, err)
	assert.Contains(t, out, "SKILL")
	assert.Contains(t, out, "Rebuttal")

	out, _, err = execute(t, &RootOptions{}, "--data-dir", dir, "--format", "json", "list", "skills")
	require.NoError(t, err)
	var skills []models.Skill
	require.NoError(t, json.Unmarshal([]byte(out), &skills))
	require.Len(t, skills, 1)
	assert.Equal(t, "Rebuttal", skills[0].Skill)

	out, _, err = execute(t, &RootOptions{}, "--data-dir", dir, "--format", "yaml", "list", "skills")
	require.NoError(t, err)
	assert.Contains(t, out, "skill: Rebuttal")
	assert.Contains(t, out, "score: 6")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := t.TempDir()
	seedSkill(t, src, "Weighing")
	outDir := t.TempDir()

	out, _, err := execute(t, &RootOptions{}, "--data-dir", src, "export", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 resources, 0 speeches, 1 skills")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	file := filepath.Join(outDir, entries[0].Name())

	dst := t.TempDir()
	seedSkill(t, dst, "Replaced")
	out, _, err = execute(t, &RootOptions{}, "--data-dir", dst, "import", file, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Previous data was replaced")

	out, _, err = execute(t, &RootOptions{}, "--data-dir", dst, "--format", "json", "list", "skills")
	require.NoError(t, err)
	assert.Contains(t, out, "Weighing")
	assert.NotContains(t, out, "Replaced")
}

func TestExportToStdout(t *testing.T) {
	dir := t.TempDir()
	seedSkill(t, dir, "Framing")

	out, _, err := execute(t, &RootOptions{}, "--data-dir", dir, "export", "-")
	require.NoError(t, err)
	snap, err := backup.Decode(bytes.NewReader([]byte(out)))
	require.NoError(t, err)
	require.Len(t, snap.Skills, 1)
	assert.Equal(t, "Framing", snap.Skills[0].Skill)
}

func TestImportCancelled(t *testing.T) {
	src := t.TempDir()
	seedSkill(t, src, "Weighing")
	file := filepath.Join(t.TempDir(), "backup.json")
	_, _, err := execute(t, &RootOptions{}, "--data-dir", src, "export", file)
	require.NoError(t, err)

	dst := t.TempDir()
	seedSkill(t, dst, "Kept")
	var asked string
	opts := &RootOptions{Confirm: func(title string) (bool, error) {
		asked = title
		return false, nil
	}}
	out, _, err := execute(t, opts, "--data-dir", dst, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "Import cancelled.\n", out)
	assert.Equal(t, "Replace all data with backup.json?", asked)

	out, _, err = execute(t, &RootOptions{}, "--data-dir", dst, "--format", "json", "list", "skills")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept")
}

func TestImportUnreadableBackup(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))

	_, _, err := execute(t, &RootOptions{}, "--data-dir", t.TempDir(), "import", bad, "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func driveDataDir(t *testing.T, srv *drivetest.Server) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf("drive:\n  client_id: %s\n  api_base: %s\n  auth_url: %s\n  token_url: %s\n",
		drivetest.DefaultClientID, srv.APIBase(), srv.AuthURL(), srv.TokenURL())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644))
	return dir
}

func TestDriveImport(t *testing.T) {
	srv := drivetest.New()
	t.Cleanup(srv.Close)
	srv.AddFolder("", "rootFolder01", "Root")
	srv.AddFile("rootFolder01", "a", "A.gdoc", "application/vnd.google-apps.document", []byte("%PDF-1.7"))
	srv.AddFolder("rootFolder01", "sub", "Sub")
	srv.AddFile("sub", "b", "B.png", "image/png", []byte("png"))

	dir := driveDataDir(t, srv)
	opts := &RootOptions{OpenURL: srv.OpenURL}
	out, _, err := execute(t, opts, "--data-dir", dir, "drive", "import", "https://drive.google.com/drive/folders/rootFolder01")
	require.NoError(t, err)
	assert.Contains(t, out, "Drive import finished")
	assert.Contains(t, out, "Imported  2")

	out, _, err = execute(t, &RootOptions{}, "--data-dir", dir, "--format", "json", "list", "resources", "--category", models.CategoryDrive)
	require.NoError(t, err)
	var resources []models.Resource
	require.NoError(t, json.Unmarshal([]byte(out), &resources))
	require.Len(t, resources, 2)
	paths := []string{resources[0].Path, resources[1].Path}
	assert.ElementsMatch(t, []string{"Root", "Root/Sub"}, paths)

	// The folder is remembered; each process authorizes again.
	out, _, err = execute(t, &RootOptions{OpenURL: srv.OpenURL}, "--data-dir", dir, "--format", "json", "drive", "import")
	require.NoError(t, err)
	var res models.SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, models.SyncResult{Updated: 2, Total: 2}, res)
	assert.Equal(t, 2, srv.Stats().Authorizations)
}

func TestDriveImportWithoutFolder(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "--data-dir", t.TempDir(), "drive", "import")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDriveConnectAndStatus(t *testing.T) {
	srv := drivetest.New()
	t.Cleanup(srv.Close)
	dir := driveDataDir(t, srv)

	out, _, err := execute(t, &RootOptions{OpenURL: srv.OpenURL}, "--data-dir", dir, "--format", "json", "drive", "connect")
	require.NoError(t, err)
	assert.Contains(t, out, `"state": "valid"`)
	assert.Equal(t, "consent", srv.LastPrompt())

	out, _, err = execute(t, &RootOptions{}, "--data-dir", dir, "drive", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "unauthenticated")
	assert.Contains(t, out, drivetest.DefaultClientID)
}

func TestDriveConnectDenied(t *testing.T) {
	srv := drivetest.New()
	t.Cleanup(srv.Close)
	srv.DenyConsent(true)
	dir := driveDataDir(t, srv)

	_, _, err := execute(t, &RootOptions{OpenURL: srv.OpenURL}, "--data-dir", dir, "drive", "connect")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "access_denied")
}
