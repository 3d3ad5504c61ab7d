package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

var evaluationTable = &table[models.Evaluation]{
	kind: "evaluation",
	name: "evaluations",
	columns: []string{
		"id", "date", "event", "motion", "content_score", "style_score", "strategy_score",
		"subcategories", "total", "strength", "weakness", "action", "created_at",
	},
	id:      func(e *models.Evaluation) string { return e.ID },
	created: func(e *models.Evaluation) string { return e.CreatedAt },
	args: func(e *models.Evaluation) []any {
		return []any{
			e.ID, e.Date, e.Event, e.Motion, e.Content, e.Style, e.Strategy,
			encodeSubcategories(e.Subcategories), e.Total, e.Strength, e.Weakness, e.Action, e.CreatedAt,
		}
	},
	scan: func(row rowScanner) (models.Evaluation, error) {
		var e models.Evaluation
		var subs string
		err := row.Scan(&e.ID, &e.Date, &e.Event, &e.Motion, &e.Content, &e.Style, &e.Strategy,
			&subs, &e.Total, &e.Strength, &e.Weakness, &e.Action, &e.CreatedAt)
		if err != nil {
			return e, err
		}
		if subs != "" {
			var sc models.Subcategories
			if err := json.Unmarshal([]byte(subs), &sc); err != nil {
				return e, fmt.Errorf("decode subcategories: %w", err)
			}
			e.Subcategories = &sc
		}
		return e, nil
	},
}

func encodeSubcategories(sc *models.Subcategories) string {
	if sc == nil {
		return ""
	}
	b, _ := json.Marshal(sc)
	return string(b)
}

// Evaluations returns every evaluation, newest first.
func (s *Store) Evaluations() []models.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluations.list()
}

// EvaluationsBetween returns evaluations whose date falls in [from, to].
// Dates compare as YYYY-MM-DD strings; an empty bound is open.
func (s *Store) EvaluationsBetween(from, to string) []models.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Evaluation
	for _, e := range s.evaluations.items {
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Evaluation returns the evaluation with id.
func (s *Store) Evaluation(id string) (models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evaluations.get(id)
	if !ok {
		return models.Evaluation{}, notFound("evaluation", id)
	}
	return e, nil
}

// CreateEvaluation appends e. The total is recomputed from the category
// scores, and the category scores from the sub-scores when present.
func (s *Store) CreateEvaluation(ctx context.Context, e models.Evaluation) (models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = s.timestamp()
	}
	if err := checkEvaluation(&e); err != nil {
		return models.Evaluation{}, err
	}
	if err := insertRecord(ctx, s, s.evaluations, &e); err != nil {
		return models.Evaluation{}, err
	}
	return e, nil
}

// UpdateEvaluation replaces the evaluation with e.ID, recomputing the total.
func (s *Store) UpdateEvaluation(ctx context.Context, e models.Evaluation) (models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.evaluations.get(e.ID)
	if !ok {
		return models.Evaluation{}, notFound("evaluation", e.ID)
	}
	if e.CreatedAt == "" {
		e.CreatedAt = old.CreatedAt
	}
	if err := checkEvaluation(&e); err != nil {
		return models.Evaluation{}, err
	}
	if err := updateRecord(ctx, s, s.evaluations, &e); err != nil {
		return models.Evaluation{}, err
	}
	return e, nil
}

// DeleteEvaluation removes the evaluation.
func (s *Store) DeleteEvaluation(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s, s.evaluations, id)
}

func checkEvaluation(e *models.Evaluation) error {
	if e.Subcategories != nil {
		for _, v := range e.Subcategories.Values() {
			if v < models.MinScore || v > models.MaxScore {
				return invalid("subcategories", "sub-score %d is outside %d..%d", v, models.MinScore, models.MaxScore)
			}
		}
		e.ApplySubcategories(*e.Subcategories)
		return nil
	}
	for name, v := range map[string]int{"content": e.Content, "style": e.Style, "strategy": e.Strategy} {
		if v < 0 || v > 100 {
			return invalid(name, "%d is outside 0..100", v)
		}
	}
	e.Total = e.ComputeTotal()
	return nil
}
