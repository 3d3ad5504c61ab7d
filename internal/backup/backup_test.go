package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)

	payload := []byte{0, 1, 2, 3, 250, 251, 252, 253, 254, 255}
	fileID, err := src.PutBlob(ctx, payload, "brief.pdf", "application/pdf")
	require.NoError(t, err)
	res, err := src.CreateResource(ctx, models.Resource{Title: "Brief", Category: "Case files", FileID: fileID, FileName: "brief.pdf"})
	require.NoError(t, err)
	sp, err := src.CreateSpeech(ctx, models.Speech{Motion: "THW ban zoos", Role: models.RoleSecondProposition, Content: "Extension on animal welfare"})
	require.NoError(t, err)
	sk, err := src.CreateSkill(ctx, models.Skill{Skill: "Rebuttal", Score: 7.5, Target: "Answer the top two arguments"})
	require.NoError(t, err)
	ev, err := src.CreateEvaluation(ctx, models.Evaluation{Date: "2024-04-02", Event: "Spring open", Content: 70, Style: 60, Strategy: 65})
	require.NoError(t, err)
	require.NoError(t, src.SetSetting(ctx, models.SettingThemePreset, "dusk"))

	var buf bytes.Buffer
	snap, err := Export(ctx, src)
	require.NoError(t, err)
	require.NoError(t, Encode(&buf, snap))
	assert.Contains(t, buf.String(), `"schemaVersion": 1`)
	assert.Contains(t, buf.String(), base64.StdEncoding.EncodeToString(payload))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	dst := openStore(t)
	_, err = dst.CreateSkill(ctx, models.Skill{Skill: "Stale", Score: 1})
	require.NoError(t, err)
	require.NoError(t, Import(ctx, dst, decoded))

	blob, err := dst.GetBlob(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, payload, blob.Data)
	assert.Equal(t, int64(len(payload)), blob.Size)
	assert.Equal(t, "application/pdf", blob.MediaType)

	assert.Equal(t, []models.Resource{res}, dst.Resources())
	assert.Equal(t, []models.Speech{sp}, dst.Speeches())
	assert.Equal(t, []models.Skill{sk}, dst.Skills())
	assert.Equal(t, []models.Evaluation{ev}, dst.Evaluations())
	assert.Equal(t, "dusk", dst.SettingString(models.SettingThemePreset))
	assert.Equal(t, snap.UpdatedAt, dst.SettingString(models.SettingLastUpdatedAt))
}

func TestImportRejectsWrongVersion(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	_, err := st.CreateSkill(ctx, models.Skill{Skill: "Framing", Score: 5})
	require.NoError(t, err)

	err = Import(ctx, st, &Snapshot{SchemaVersion: 2})
	require.ErrorIs(t, err, ErrInvalidFormat)
	assert.Len(t, st.Skills(), 1, "store must be untouched")

	_, err = Decode(strings.NewReader(`{"resources": []}`))
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Decode(strings.NewReader(`not json`))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestImportRejectsBadAttachments(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	_, err := st.CreateSkill(ctx, models.Skill{Skill: "Framing", Score: 5})
	require.NoError(t, err)

	bad := []File{
		{ID: "f1", Name: "a", Base64: "%%%"},
		{ID: "f2", Name: "a", Size: 99, Base64: base64.StdEncoding.EncodeToString([]byte("abc"))},
		{Name: "no id", Base64: ""},
	}
	for _, f := range bad {
		err := Import(ctx, st, &Snapshot{SchemaVersion: SchemaVersion, Files: []File{f}})
		assert.ErrorIs(t, err, ErrInvalidFormat, "file %+v", f)
	}
	assert.Len(t, st.Skills(), 1, "store must be untouched")
}

func TestImportInfersMissingSize(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	snap := &Snapshot{
		SchemaVersion: SchemaVersion,
		Resources: []models.Resource{
			{ID: "r1", Title: "Notes", Category: "Other", FileID: "f1", FileName: "n.txt", CreatedAt: "2024-01-01T00:00:00.000Z"},
			{ID: "r2", Title: "Blank", Category: "Other", FileID: "f2", FileName: "blank.txt", CreatedAt: "2024-01-01T00:00:00.000Z"},
		},
		Files: []File{
			{ID: "f1", Name: "n.txt", MediaType: "text/plain", CreatedAt: "2024-01-01T00:00:00.000Z", Base64: base64.StdEncoding.EncodeToString([]byte("hello"))},
			{ID: "f2", Name: "blank.txt", MediaType: "text/plain", CreatedAt: "2024-01-01T00:00:00.000Z"},
		},
	}
	require.NoError(t, Import(ctx, st, snap))

	blob, err := st.GetBlob(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), blob.Size)
	assert.Equal(t, []byte("hello"), blob.Data)

	blob, err = st.GetBlob(ctx, "f2")
	require.NoError(t, err)
	assert.Zero(t, blob.Size)
	assert.Empty(t, blob.Data)
}

func TestImportLegacyTypeField(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	doc := `{
	  "schemaVersion": 1,
	  "exportedAt": "2024-01-01T00:00:00.000Z",
	  "resources": [{"id": "r1", "title": "Notes", "category": "Other", "fileId": "f1", "fileName": "n.txt", "createdAt": "2024-01-01T00:00:00.000Z"}],
	  "files": [{"id": "f1", "name": "n.txt", "type": "text/plain", "size": 2, "createdAt": "2024-01-01T00:00:00.000Z", "base64": "aGk="}]
	}`
	snap, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, Import(ctx, st, snap))

	blob, err := st.GetBlob(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", blob.MediaType)
	assert.Equal(t, []byte("hi"), blob.Data)
	assert.NotEmpty(t, st.SettingString(models.SettingLastUpdatedAt))
}

func TestWriteAndReadFile(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	_, err := st.CreateSkill(ctx, models.Skill{Skill: "Weighing", Score: 8})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backup.json")
	_, err = WriteFile(ctx, st, path)
	require.NoError(t, err)

	snap, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, snap.Skills, 1)
	assert.Empty(t, snap.Files)
	assert.NotNil(t, snap.Resources)
}
