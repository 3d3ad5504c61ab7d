package storage

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

var speechTable = &table[models.Speech]{
	kind:    "speech",
	name:    "speeches",
	columns: []string{"id", "motion", "role", "content", "notes", "file_id", "file_name", "created_at"},
	id:      func(sp *models.Speech) string { return sp.ID },
	created: func(sp *models.Speech) string { return sp.CreatedAt },
	fileID:  func(sp *models.Speech) string { return sp.FileID },
	args: func(sp *models.Speech) []any {
		return []any{sp.ID, sp.Motion, sp.Role, sp.Content, sp.Notes, nullable(sp.FileID), sp.FileName, sp.CreatedAt}
	},
	scan: func(row rowScanner) (models.Speech, error) {
		var sp models.Speech
		var fileID sql.NullString
		err := row.Scan(&sp.ID, &sp.Motion, &sp.Role, &sp.Content, &sp.Notes, &fileID, &sp.FileName, &sp.CreatedAt)
		sp.FileID = fileID.String
		return sp, err
	},
}

// Speeches returns every speech, newest first.
func (s *Store) Speeches() []models.Speech {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speeches.list()
}

// SpeechesByRole returns the speeches given in role, newest first.
func (s *Store) SpeechesByRole(role string) []models.Speech {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Speech
	for _, sp := range s.speeches.items {
		if sp.Role == role {
			out = append(out, sp)
		}
	}
	return out
}

// Speech returns the speech with id.
func (s *Store) Speech(id string) (models.Speech, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.speeches.get(id)
	if !ok {
		return models.Speech{}, notFound("speech", id)
	}
	return sp, nil
}

// CreateSpeech appends sp. A missing id or createdAt is generated.
func (s *Store) CreateSpeech(ctx context.Context, sp models.Speech) (models.Speech, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sp.ID == "" {
		sp.ID = s.newID()
	}
	if sp.CreatedAt == "" {
		sp.CreatedAt = s.timestamp()
	}
	if err := checkSpeech(&sp); err != nil {
		return models.Speech{}, err
	}
	if err := insertRecord(ctx, s, s.speeches, &sp); err != nil {
		return models.Speech{}, err
	}
	return sp, nil
}

// UpdateSpeech replaces the speech with sp.ID.
func (s *Store) UpdateSpeech(ctx context.Context, sp models.Speech) (models.Speech, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.speeches.get(sp.ID)
	if !ok {
		return models.Speech{}, notFound("speech", sp.ID)
	}
	if sp.CreatedAt == "" {
		sp.CreatedAt = old.CreatedAt
	}
	if err := checkSpeech(&sp); err != nil {
		return models.Speech{}, err
	}
	if err := updateRecord(ctx, s, s.speeches, &sp); err != nil {
		return models.Speech{}, err
	}
	return sp, nil
}

// DeleteSpeech removes the speech and its attachment.
func (s *Store) DeleteSpeech(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s, s.speeches, id)
}

func checkSpeech(sp *models.Speech) error {
	sp.Motion = strings.TrimSpace(sp.Motion)
	if sp.Motion == "" {
		return invalid("motion", "must not be empty")
	}
	if !slices.Contains(models.SpeechRoles, sp.Role) {
		return invalid("role", "unknown role %q", sp.Role)
	}
	if strings.TrimSpace(sp.Content) == "" {
		return invalid("content", "must not be empty")
	}
	return nil
}
