package reconcile_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/drive/drivetest"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/reconcile"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

type staticCreds struct{ srv *drivetest.Server }

func (c staticCreds) Token(context.Context) (string, error)   { return c.srv.IssueToken(), nil }
func (c staticCreds) Refresh(context.Context) (string, error) { return c.srv.IssueToken(), nil }

type fixture struct {
	srv    *drivetest.Server
	client *drive.Client
	store  *storage.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := drivetest.New()
	t.Cleanup(srv.Close)

	st, err := storage.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client := drive.NewClient(staticCreds{srv}, drive.WithBaseURL(srv.APIBase()), drive.WithHTTPClient(srv.Client()))
	return &fixture{srv: srv, client: client, store: st}
}

// sampleTree builds Root/A.gdoc and Root/Sub/B.png.
func (f *fixture) sampleTree() {
	f.srv.AddFolder("", "root", "Root")
	f.srv.AddFile("root", "a", "A.gdoc", "application/vnd.google-apps.document", []byte("%PDF-1.7 exported"))
	f.srv.AddFolder("root", "sub", "Sub")
	f.srv.AddFile("sub", "b", "B.png", "image/png", []byte("\x89PNG fake"))
}

func (f *fixture) run(t *testing.T, store reconcile.Store, opts ...reconcile.Option) (models.SyncResult, error) {
	t.Helper()
	engine := reconcile.New(store, f.client, opts...)
	return engine.Run(context.Background(), drive.Walk(context.Background(), f.client, "root", 0), nil)
}

func byTitle(rs []models.Resource) map[string]models.Resource {
	m := make(map[string]models.Resource, len(rs))
	for _, r := range rs {
		m[r.Title] = r
	}
	return m
}

func TestImportSampleTree(t *testing.T) {
	f := setup(t)
	f.sampleTree()

	res, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Imported: 2, Total: 2}, res)

	got := byTitle(f.store.Resources())
	require.Len(t, got, 2)

	a := got["A.gdoc"]
	assert.Equal(t, models.CategoryDrive, a.Category)
	assert.Equal(t, "Root", a.Path)
	assert.Equal(t, "a", a.SourceFileID)
	assert.True(t, strings.HasSuffix(a.FileName, ".pdf"))
	assert.Equal(t, "2024-01-01T00:00:00.000Z", a.RemoteModifiedAt)

	b := got["B.png"]
	assert.Equal(t, "Root/Sub", b.Path)
	assert.Equal(t, "B.png", b.FileName)

	blob, err := f.store.GetBlob(context.Background(), b.FileID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG fake"), blob.Data)
	assert.Equal(t, "image/png", blob.MediaType)

	blob, err = f.store.GetBlob(context.Background(), a.FileID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", blob.MediaType)
}

func TestRerunIsIdempotent(t *testing.T) {
	f := setup(t)
	f.sampleTree()

	first, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)
	before := byTitle(f.store.Resources())

	second, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Updated: 2, Total: 2}, second)

	after := byTitle(f.store.Resources())
	require.Len(t, after, 2)
	for title, r := range after {
		assert.Equal(t, before[title].ID, r.ID, "id preserved for %s", title)
		assert.NotEqual(t, before[title].FileID, r.FileID, "attachment replaced for %s", title)
		_, err := f.store.GetBlob(context.Background(), before[title].FileID)
		assert.ErrorIs(t, err, storage.ErrNotFound, "previous blob removed for %s", title)
	}

	blobs, err := f.store.Blobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, blobs, 2)
}

func TestEmptyFileImported(t *testing.T) {
	f := setup(t)
	f.srv.AddFolder("", "root", "Root")
	f.srv.AddFile("root", "e", "empty.txt", "text/plain", nil)
	f.srv.AddFile("root", "n", "notes.txt", "text/plain", []byte("hi"))

	first, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Imported: 2, Total: 2}, first)

	second, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Updated: 2, Total: 2}, second)

	empty, ok := byTitle(f.store.Resources())["empty.txt"]
	require.True(t, ok)
	blob, err := f.store.GetBlob(context.Background(), empty.FileID)
	require.NoError(t, err)
	assert.Zero(t, blob.Size)
	assert.Empty(t, blob.Data)
}

func TestUpdatePicksUpRemoteChanges(t *testing.T) {
	f := setup(t)
	f.sampleTree()
	_, err := f.run(t, f.store)
	require.NoError(t, err)

	f.srv.SetContent("b", []byte("new png"), "2024-03-01T10:00:00.000Z")
	_, err = f.run(t, f.store)
	require.NoError(t, err)

	b := byTitle(f.store.Resources())["B.png"]
	assert.Equal(t, "2024-03-01T10:00:00.000Z", b.RemoteModifiedAt)
	assert.NotEmpty(t, b.UpdatedAt)
	blob, err := f.store.GetBlob(context.Background(), b.FileID)
	require.NoError(t, err)
	assert.Equal(t, []byte("new png"), blob.Data)
}

func TestMatchByPathAndName(t *testing.T) {
	f := setup(t)
	f.sampleTree()
	ctx := context.Background()

	blobID, err := f.store.PutBlob(ctx, []byte("stale"), "B.png", "image/png")
	require.NoError(t, err)
	existing, err := f.store.CreateResource(ctx, models.Resource{
		Title:    "B.png",
		Category: models.CategoryDrive,
		FileID:   blobID,
		FileName: "B.png",
		Path:     "Root/Sub",
	})
	require.NoError(t, err)

	res, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Updated)

	r, err := f.store.Resource(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", r.SourceFileID)
	_, err = f.store.GetBlob(ctx, blobID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnmappedNativeTypeSkipped(t *testing.T) {
	f := setup(t)
	f.srv.AddFolder("", "root", "Root")
	f.srv.AddFile("root", "form", "Feedback", "application/vnd.google-apps.form", nil)
	f.srv.AddFile("root", "txt", "notes.txt", "text/plain", []byte("rebuttal notes"))

	res, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Imported: 1, Skipped: 1, Total: 2}, res)
	for _, r := range f.store.Resources() {
		assert.NotEqual(t, "form", r.SourceFileID)
	}
}

func TestOversizeSkippedWithoutBlob(t *testing.T) {
	f := setup(t)
	f.srv.AddFolder("", "root", "Root")
	// Binary files are rejected on their listed size, exports after download.
	f.srv.AddFile("root", "big", "big.png", "image/png", make([]byte, 64))
	f.srv.AddFile("root", "doc", "Case", "application/vnd.google-apps.document", make([]byte, 64))

	res, err := f.run(t, f.store, reconcile.WithMaxSize(32))
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Skipped: 2, Total: 2}, res)
	assert.Empty(t, f.store.Resources())

	blobs, err := f.store.Blobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blobs)
	assert.Equal(t, 1, f.srv.Stats().Downloads, "listed size skips before download")
}

func TestItemFailureIsIsolated(t *testing.T) {
	f := setup(t)
	f.sampleTree()
	f.srv.AddFile("root", "broken", "broken.pdf", "application/pdf", []byte("%PDF"))
	f.srv.FailRequests("broken", http.StatusInternalServerError)

	res, err := f.run(t, f.store)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Imported: 2, Skipped: 1, Total: 3}, res)
}

// failingStore rejects resource creation for one title.
type failingStore struct {
	*storage.Store
	title string
}

func (s failingStore) CreateResource(ctx context.Context, r models.Resource) (models.Resource, error) {
	if r.Title == s.title {
		return models.Resource{}, errors.New("disk full")
	}
	return s.Store.CreateResource(ctx, r)
}

func TestStorageFailureDiscardsBlob(t *testing.T) {
	f := setup(t)
	f.sampleTree()

	res, err := f.run(t, failingStore{Store: f.store, title: "B.png"})
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Imported: 1, Skipped: 1, Total: 2}, res)

	blobs, err := f.store.Blobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, blobs, 1)
}

func TestWalkErrorStopsRun(t *testing.T) {
	f := setup(t)
	f.sampleTree()
	f.srv.FailRequests("sub", http.StatusForbidden)

	res, err := f.run(t, f.store)
	var apiErr *drive.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, models.SyncResult{Imported: 1, Total: 1}, res)
	assert.Len(t, f.store.Resources(), 1)
}

func TestProgressReported(t *testing.T) {
	f := setup(t)
	f.sampleTree()

	var seen []models.SyncResult
	engine := reconcile.New(f.store, f.client)
	_, err := engine.Run(context.Background(), drive.Walk(context.Background(), f.client, "root", 0), func(p models.SyncResult) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, models.SyncResult{Imported: 1, Total: 1}, seen[0])
	assert.Equal(t, models.SyncResult{Imported: 2, Total: 2}, seen[1])
}
