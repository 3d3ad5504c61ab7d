package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// Dataset is the complete contents of a store, attachments included.
type Dataset struct {
	Resources   []models.Resource
	Speeches    []models.Speech
	Skills      []models.Skill
	Evaluations []models.Evaluation
	Settings    map[string]json.RawMessage
	Blobs       []models.Blob
}

// Dump reads the whole store. Blobs are returned oldest first with their
// bytes.
func (s *Store) Dump(ctx context.Context) (Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := Dataset{
		Resources:   s.resources.list(),
		Speeches:    s.speeches.list(),
		Skills:      s.skills.list(),
		Evaluations: s.evaluations.list(),
		Settings:    maps.Clone(s.settings),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, media_type, size, data, created_at FROM files ORDER BY created_at, id`)
	if err != nil {
		return Dataset{}, fmt.Errorf("dump blobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b models.Blob
		if err := rows.Scan(&b.ID, &b.Name, &b.MediaType, &b.Size, &b.Data, &b.CreatedAt); err != nil {
			return Dataset{}, fmt.Errorf("scan blob: %w", err)
		}
		d.Blobs = append(d.Blobs, b)
	}
	if err := rows.Err(); err != nil {
		return Dataset{}, fmt.Errorf("dump blobs: %w", err)
	}
	return d, nil
}

// ReplaceAll clears every table and writes d in a single transaction. On any
// failure nothing changes.
func (s *Store) ReplaceAll(ctx context.Context, d Dataset) error {
	for _, b := range d.Blobs {
		if b.ID == "" {
			return invalid("files", "attachment without id")
		}
		if b.Size != int64(len(b.Data)) {
			return invalid("files", "attachment %s declares %d bytes but holds %d", b.ID, b.Size, len(b.Data))
		}
	}
	d.Evaluations = slices.Clone(d.Evaluations)
	for i := range d.Evaluations {
		d.Evaluations[i].Total = d.Evaluations[i].ComputeTotal()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Records reference files, so they go first on delete and last on insert.
	for _, name := range []string{"resources", "speeches", "skills", "evaluations", "settings", "files"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+name); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	for _, b := range d.Blobs {
		if b.Data == nil {
			b.Data = []byte{}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO files (id, name, media_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, b.Name, b.MediaType, b.Size, b.Data, b.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert blob %s: %w", b.ID, err)
		}
	}
	if err := insertAll(ctx, tx, resourceTable, d.Resources); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, speechTable, d.Speeches); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, skillTable, d.Skills); err != nil {
		return err
	}
	if err := insertAll(ctx, tx, evaluationTable, d.Evaluations); err != nil {
		return err
	}
	for key, value := range d.Settings {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)`, key, string(value)); err != nil {
			return fmt.Errorf("insert setting %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.resources.reset(d.Resources)
	s.speeches.reset(d.Speeches)
	s.skills.reset(d.Skills)
	s.evaluations.reset(d.Evaluations)
	s.settings = maps.Clone(d.Settings)
	if s.settings == nil {
		s.settings = make(map[string]json.RawMessage)
	}
	return nil
}

func insertAll[T any](ctx context.Context, tx *sql.Tx, t *table[T], recs []T) error {
	query := t.insertSQL()
	for i := range recs {
		if t.id(&recs[i]) == "" {
			return invalid(t.name, "%s without id", t.kind)
		}
		if _, err := tx.ExecContext(ctx, query, t.args(&recs[i])...); err != nil {
			return fmt.Errorf("insert %s %s: %w", t.kind, t.id(&recs[i]), err)
		}
	}
	return nil
}
