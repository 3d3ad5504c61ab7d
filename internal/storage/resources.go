package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

var resourceTable = &table[models.Resource]{
	kind: "resource",
	name: "resources",
	columns: []string{
		"id", "title", "category", "file_id", "file_name",
		"source_file_id", "path", "remote_modified_at", "created_at", "updated_at",
	},
	id:      func(r *models.Resource) string { return r.ID },
	created: func(r *models.Resource) string { return r.CreatedAt },
	fileID:  func(r *models.Resource) string { return r.FileID },
	args: func(r *models.Resource) []any {
		return []any{
			r.ID, r.Title, r.Category, nullable(r.FileID), r.FileName,
			r.SourceFileID, r.Path, r.RemoteModifiedAt, r.CreatedAt, r.UpdatedAt,
		}
	},
	scan: func(row rowScanner) (models.Resource, error) {
		var r models.Resource
		var fileID sql.NullString
		err := row.Scan(&r.ID, &r.Title, &r.Category, &fileID, &r.FileName,
			&r.SourceFileID, &r.Path, &r.RemoteModifiedAt, &r.CreatedAt, &r.UpdatedAt)
		r.FileID = fileID.String
		return r, err
	},
}

// Resources returns every resource, newest first.
func (s *Store) Resources() []models.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resources.list()
}

// ResourcesByCategory returns the resources in category, newest first.
func (s *Store) ResourcesByCategory(category string) []models.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Resource
	for _, r := range s.resources.items {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Resource returns the resource with id.
func (s *Store) Resource(id string) (models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources.get(id)
	if !ok {
		return models.Resource{}, notFound("resource", id)
	}
	return r, nil
}

// FindResourceBySource returns the resource imported from the remote file
// sourceID.
func (s *Store) FindResourceBySource(sourceID string) (models.Resource, bool) {
	if sourceID == "" {
		return models.Resource{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.resources.items {
		if r.SourceFileID == sourceID {
			return r, true
		}
	}
	return models.Resource{}, false
}

// FindRemoteResourceByPath returns the remote-sourced resource stored under
// path with fileName.
func (s *Store) FindRemoteResourceByPath(path, fileName string) (models.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.resources.items {
		if r.IsRemote() && r.Path == path && r.FileName == fileName {
			return r, true
		}
	}
	return models.Resource{}, false
}

// CreateResource appends r. A missing id or createdAt is generated.
func (s *Store) CreateResource(ctx context.Context, r models.Resource) (models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = s.timestamp()
	}
	if err := s.checkResource(&r); err != nil {
		return models.Resource{}, err
	}
	if err := insertRecord(ctx, s, s.resources, &r); err != nil {
		return models.Resource{}, err
	}
	return r, nil
}

// UpdateResource replaces the resource with r.ID and stamps updatedAt. The
// original createdAt is kept when r carries none.
func (s *Store) UpdateResource(ctx context.Context, r models.Resource) (models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.resources.get(r.ID)
	if !ok {
		return models.Resource{}, notFound("resource", r.ID)
	}
	if r.CreatedAt == "" {
		r.CreatedAt = old.CreatedAt
	}
	r.UpdatedAt = s.timestamp()
	if err := s.checkResource(&r); err != nil {
		return models.Resource{}, err
	}
	if err := updateRecord(ctx, s, s.resources, &r); err != nil {
		return models.Resource{}, err
	}
	return r, nil
}

// DeleteResource removes the resource and its attachment. It reports whether
// anything was removed.
func (s *Store) DeleteResource(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s, s.resources, id)
}

func (s *Store) checkResource(r *models.Resource) error {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.TrimSpace(r.Category)
	if r.Title == "" {
		return invalid("title", "must not be empty")
	}
	if r.Category == "" {
		return invalid("category", "must not be empty")
	}
	if r.SourceFileID == "" {
		return nil
	}
	for _, other := range s.resources.items {
		if other.SourceFileID == r.SourceFileID && other.ID != r.ID {
			return invalid("driveFileId", "remote file %q is already imported as %s", r.SourceFileID, other.ID)
		}
	}
	return nil
}
