package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// PutBlob stores data as a new attachment and returns its id. The size is
// taken from data; zero-length attachments are stored as such.
func (s *Store) PutBlob(ctx context.Context, data []byte, name, mediaType string) (string, error) {
	if data == nil {
		data = []byte{}
	}
	if int64(len(data)) > s.maxBlobSize {
		return "", invalid("file", "attachment is %s, limit is %s",
			humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(s.maxBlobSize)))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "must not be empty")
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, name, media_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, mediaType, len(data), data, s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("insert blob: %w", err)
	}
	return id, nil
}

// GetBlob returns the attachment with id, including its bytes.
func (s *Store) GetBlob(ctx context.Context, id string) (models.Blob, error) {
	var b models.Blob
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, media_type, size, data, created_at FROM files WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.MediaType, &b.Size, &b.Data, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Blob{}, notFound("file", id)
	}
	if err != nil {
		return models.Blob{}, fmt.Errorf("get blob: %w", err)
	}
	return b, nil
}

// DeleteBlob removes the attachment with id. Deleting an absent id is not an
// error. Blobs still referenced by a record cannot be deleted this way.
func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.blobOwned(id) {
		return invalid("fileId", "attachment %q is still referenced", id)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Blobs returns the metadata of every stored attachment, oldest first.
func (s *Store) Blobs(ctx context.Context) ([]models.Blob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, media_type, size, created_at FROM files ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()

	var blobs []models.Blob
	for rows.Next() {
		var b models.Blob
		if err := rows.Scan(&b.ID, &b.Name, &b.MediaType, &b.Size, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blob: %w", err)
		}
		blobs = append(blobs, b)
	}
	return blobs, rows.Err()
}

// blobOwned reports whether a cached record references id. The caller holds
// the store lock.
func (s *Store) blobOwned(id string) bool {
	for _, r := range s.resources.items {
		if r.FileID == id {
			return true
		}
	}
	for _, sp := range s.speeches.items {
		if sp.FileID == id {
			return true
		}
	}
	return false
}
