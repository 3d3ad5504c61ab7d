package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// SearchResources performs FTS5 full-text search over resource titles, file
// names and folder paths.
func (s *Store) SearchResources(ctx context.Context, query string) ([]models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := s.matchIDs(ctx, "resources", query)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return s.resources.filter(ids), nil
}

// SearchSpeeches performs FTS5 full-text search over speech motions, content
// and notes.
func (s *Store) SearchSpeeches(ctx context.Context, query string) ([]models.Speech, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := s.matchIDs(ctx, "speeches", query)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return s.speeches.filter(ids), nil
}

// SearchEvaluations performs FTS5 full-text search over evaluation events and
// motions.
func (s *Store) SearchEvaluations(ctx context.Context, query string) ([]models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := s.matchIDs(ctx, "evaluations", query)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return s.evaluations.filter(ids), nil
}

func (s *Store) matchIDs(ctx context.Context, tableName, query string) (map[string]bool, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT t.id FROM %[1]s t
		 JOIN %[1]s_fts ON %[1]s_fts.rowid = t.rowid
		 WHERE %[1]s_fts MATCH ?`, tableName),
		match,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s fts: %w", tableName, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s match: %w", tableName, err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ftsQuery turns free text into an FTS5 query matching rows that contain
// every word as a prefix. Words are quoted so punctuation is never parsed as
// query syntax.
func ftsQuery(text string) string {
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, `"`+strings.ReplaceAll(w, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " ")
}
