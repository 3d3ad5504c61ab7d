// Package backup converts the whole store, attachments included, into a
// portable JSON snapshot and restores it.
package backup

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/storage"
)

// SchemaVersion is the only snapshot version Import accepts.
const SchemaVersion = 1

// ErrInvalidFormat is returned for a snapshot that cannot be restored. It is
// always reported before the store is touched.
var ErrInvalidFormat = errors.New("invalid backup file")

// File is an attachment inside a snapshot.
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	// Type is the media type field written by older exports.
	Type      string `json:"type,omitempty"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
	Base64    string `json:"base64"`
}

// Snapshot is the backup document.
type Snapshot struct {
	SchemaVersion int                        `json:"schemaVersion"`
	ExportedAt    string                     `json:"exportedAt"`
	UpdatedAt     string                     `json:"updatedAt,omitempty"`
	Resources     []models.Resource          `json:"resources"`
	Speeches      []models.Speech            `json:"speeches"`
	Skills        []models.Skill             `json:"skills"`
	Evaluations   []models.Evaluation        `json:"evaluations"`
	Settings      map[string]json.RawMessage `json:"settings"`
	Files         []File                     `json:"files"`
}

// Store is the subset of the record store the codec needs.
type Store interface {
	Dump(ctx context.Context) (storage.Dataset, error)
	ReplaceAll(ctx context.Context, d storage.Dataset) error
}

// Export captures every collection, setting and attachment.
func Export(ctx context.Context, st Store) (*Snapshot, error) {
	d, err := st.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("dump store: %w", err)
	}

	now := models.Timestamp(time.Now())
	snap := &Snapshot{
		SchemaVersion: SchemaVersion,
		ExportedAt:    now,
		UpdatedAt:     now,
		Resources:     orEmpty(d.Resources),
		Speeches:      orEmpty(d.Speeches),
		Skills:        orEmpty(d.Skills),
		Evaluations:   orEmpty(d.Evaluations),
		Settings:      d.Settings,
		Files:         make([]File, 0, len(d.Blobs)),
	}
	if snap.Settings == nil {
		snap.Settings = map[string]json.RawMessage{}
	}
	for _, b := range d.Blobs {
		snap.Files = append(snap.Files, File{
			ID:        b.ID,
			Name:      b.Name,
			MediaType: b.MediaType,
			Size:      b.Size,
			CreatedAt: b.CreatedAt,
			Base64:    base64.StdEncoding.EncodeToString(b.Data),
		})
	}
	return snap, nil
}

// Import replaces the entire store with snap. The snapshot is fully decoded
// and checked first; the replacement itself is a single transaction. The
// lastUpdatedAt setting records the snapshot's update time. An attachment
// with size 0 takes its size from the decoded payload; any other size must
// match it.
func Import(ctx context.Context, st Store, snap *Snapshot) error {
	d, err := toDataset(snap)
	if err != nil {
		return err
	}
	updatedAt := snap.UpdatedAt
	if updatedAt == "" {
		updatedAt = models.Timestamp(time.Now())
	}
	raw, _ := json.Marshal(updatedAt)
	d.Settings[models.SettingLastUpdatedAt] = raw

	if err := st.ReplaceAll(ctx, d); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func toDataset(snap *Snapshot) (storage.Dataset, error) {
	if snap == nil || snap.SchemaVersion != SchemaVersion {
		return storage.Dataset{}, ErrInvalidFormat
	}
	d := storage.Dataset{
		Resources:   snap.Resources,
		Speeches:    snap.Speeches,
		Skills:      snap.Skills,
		Evaluations: snap.Evaluations,
		Settings:    make(map[string]json.RawMessage, len(snap.Settings)+1),
		Blobs:       make([]models.Blob, 0, len(snap.Files)),
	}
	for k, v := range snap.Settings {
		d.Settings[k] = v
	}
	for _, f := range snap.Files {
		if f.ID == "" {
			return storage.Dataset{}, fmt.Errorf("%w: attachment without id", ErrInvalidFormat)
		}
		data, err := base64.StdEncoding.DecodeString(f.Base64)
		if err != nil {
			return storage.Dataset{}, fmt.Errorf("%w: attachment %s: %v", ErrInvalidFormat, f.ID, err)
		}
		size := f.Size
		if size == 0 {
			size = int64(len(data))
		}
		if size != int64(len(data)) {
			return storage.Dataset{}, fmt.Errorf("%w: attachment %s declares %d bytes but holds %d", ErrInvalidFormat, f.ID, f.Size, len(data))
		}
		mediaType := f.MediaType
		if mediaType == "" {
			mediaType = f.Type
		}
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		d.Blobs = append(d.Blobs, models.Blob{
			ID:        f.ID,
			Name:      f.Name,
			MediaType: mediaType,
			Size:      size,
			Data:      data,
			CreatedAt: f.CreatedAt,
		})
	}
	return d, nil
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Decode reads a snapshot and checks its schema version.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if snap.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrInvalidFormat, snap.SchemaVersion, SchemaVersion)
	}
	return &snap, nil
}

// WriteFile exports st to path. The file is written next to path first and
// renamed into place.
func WriteFile(ctx context.Context, st Store, path string) (*Snapshot, error) {
	snap, err := Export(ctx, st)
	if err != nil {
		return nil, err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}
	return snap, nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// FileName is the suggested name for a backup taken at t.
func FileName(t time.Time) string {
	return "debate-vault-backup-" + t.UTC().Format("2006-01-02") + ".json"
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
