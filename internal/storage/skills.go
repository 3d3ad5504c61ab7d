package storage

import (
	"context"
	"strings"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

var skillTable = &table[models.Skill]{
	kind:    "skill",
	name:    "skills",
	columns: []string{"id", "skill", "score", "target", "created_at"},
	id:      func(sk *models.Skill) string { return sk.ID },
	created: func(sk *models.Skill) string { return sk.CreatedAt },
	args: func(sk *models.Skill) []any {
		return []any{sk.ID, sk.Skill, sk.Score, sk.Target, sk.CreatedAt}
	},
	scan: func(row rowScanner) (models.Skill, error) {
		var sk models.Skill
		err := row.Scan(&sk.ID, &sk.Skill, &sk.Score, &sk.Target, &sk.CreatedAt)
		return sk, err
	},
}

// Skills returns every skill entry, newest first.
func (s *Store) Skills() []models.Skill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skills.list()
}

// Skill returns the skill entry with id.
func (s *Store) Skill(id string) (models.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.skills.get(id)
	if !ok {
		return models.Skill{}, notFound("skill", id)
	}
	return sk, nil
}

// CreateSkill appends sk.
func (s *Store) CreateSkill(ctx context.Context, sk models.Skill) (models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sk.ID == "" {
		sk.ID = s.newID()
	}
	if sk.CreatedAt == "" {
		sk.CreatedAt = s.timestamp()
	}
	if err := checkSkill(&sk); err != nil {
		return models.Skill{}, err
	}
	if err := insertRecord(ctx, s, s.skills, &sk); err != nil {
		return models.Skill{}, err
	}
	return sk, nil
}

// UpdateSkill replaces the skill entry with sk.ID.
func (s *Store) UpdateSkill(ctx context.Context, sk models.Skill) (models.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.skills.get(sk.ID)
	if !ok {
		return models.Skill{}, notFound("skill", sk.ID)
	}
	if sk.CreatedAt == "" {
		sk.CreatedAt = old.CreatedAt
	}
	if err := checkSkill(&sk); err != nil {
		return models.Skill{}, err
	}
	if err := updateRecord(ctx, s, s.skills, &sk); err != nil {
		return models.Skill{}, err
	}
	return sk, nil
}

// DeleteSkill removes the skill entry.
func (s *Store) DeleteSkill(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s, s.skills, id)
}

func checkSkill(sk *models.Skill) error {
	sk.Skill = strings.TrimSpace(sk.Skill)
	if sk.Skill == "" {
		return invalid("skill", "must not be empty")
	}
	if sk.Score < models.MinScore || sk.Score > models.MaxScore {
		return invalid("score", "%g is outside %d..%d", sk.Score, models.MinScore, models.MaxScore)
	}
	return nil
}
