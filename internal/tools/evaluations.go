package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/insights"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// --- Input types ---

type ListEvaluationsInput struct {
	From  string `json:"from,omitempty" jsonschema:"Earliest round date (YYYY-MM-DD or e.g. 'last month')"`
	To    string `json:"to,omitempty" jsonschema:"Latest round date (YYYY-MM-DD or e.g. 'today')"`
	Query string `json:"query,omitempty" jsonschema:"Full-text search over event and motion"`
}

type LogEvaluationInput struct {
	Date          string               `json:"date,omitempty" jsonschema:"Round date, YYYY-MM-DD or e.g. 'yesterday' (default today)"`
	Event         string               `json:"event" jsonschema:"Tournament or practice name"`
	Motion        string               `json:"motion" jsonschema:"Debate motion"`
	Subcategories models.Subcategories `json:"subcategories" jsonschema:"Nine sub-scores from 1 to 10 grouped by content, style and strategy"`
	Strength      string               `json:"strength" jsonschema:"What went well (at least 20 characters)"`
	Weakness      string               `json:"weakness" jsonschema:"What went badly (at least 20 characters)"`
	Action        string               `json:"action" jsonschema:"What to do next time (at least 20 characters)"`
}

type UpdateEvaluationInput struct {
	ID            string                `json:"id" jsonschema:"Evaluation id"`
	Date          string                `json:"date,omitempty" jsonschema:"New round date (unchanged when empty)"`
	Event         string                `json:"event,omitempty" jsonschema:"New event (unchanged when empty)"`
	Motion        string                `json:"motion,omitempty" jsonschema:"New motion (unchanged when empty)"`
	Subcategories *models.Subcategories `json:"subcategories,omitempty" jsonschema:"Replacement sub-scores (unchanged when absent)"`
	Strength      string                `json:"strength,omitempty" jsonschema:"New strength (unchanged when empty)"`
	Weakness      string                `json:"weakness,omitempty" jsonschema:"New weakness (unchanged when empty)"`
	Action        string                `json:"action,omitempty" jsonschema:"New action (unchanged when empty)"`
}

// --- Handlers ---

func (t *Tools) ListEvaluations(ctx context.Context, _ *mcp.CallToolRequest, input ListEvaluationsInput) (*mcp.CallToolResult, any, error) {
	st := t.App.Store
	from, to := "", ""
	var err error
	if input.From != "" {
		if from, err = parseDate(input.From, t.now()); err != nil {
			return toolError("Invalid from: %v", err), nil, nil
		}
	}
	if input.To != "" {
		if to, err = parseDate(input.To, t.now()); err != nil {
			return toolError("Invalid to: %v", err), nil, nil
		}
	}

	evals := st.EvaluationsBetween(from, to)
	if input.Query != "" {
		found, err := st.SearchEvaluations(ctx, input.Query)
		if err != nil {
			return toolFailure("Search failed", err), nil, nil
		}
		inRange := make(map[string]bool, len(evals))
		for _, e := range evals {
			inRange[e.ID] = true
		}
		evals = evals[:0]
		for _, e := range found {
			if inRange[e.ID] {
				evals = append(evals, e)
			}
		}
	}
	return toolJSON(orEmpty(evals))
}

func checkReflections(strength, weakness, action string) *mcp.CallToolResult {
	for _, f := range []struct{ name, value string }{{"strength", strength}, {"weakness", weakness}, {"action", action}} {
		if res := minLength(f.name, f.value, MinReflection); res != nil {
			return res
		}
	}
	return nil
}

func checkSubscores(s models.Subcategories) *mcp.CallToolResult {
	for _, v := range s.Values() {
		if v < models.MinScore || v > models.MaxScore {
			return toolError("every sub-score must be between %d and %d, got %d", models.MinScore, models.MaxScore, v)
		}
	}
	return nil
}

func (t *Tools) LogEvaluation(ctx context.Context, _ *mcp.CallToolRequest, input LogEvaluationInput) (*mcp.CallToolResult, any, error) {
	if res := checkReflections(input.Strength, input.Weakness, input.Action); res != nil {
		return res, nil, nil
	}
	if res := checkSubscores(input.Subcategories); res != nil {
		return res, nil, nil
	}
	date, err := parseDate(input.Date, t.now())
	if err != nil {
		return toolError("Invalid date: %v", err), nil, nil
	}

	e := models.Evaluation{
		Date:     date,
		Event:    input.Event,
		Motion:   input.Motion,
		Strength: input.Strength,
		Weakness: input.Weakness,
		Action:   input.Action,
	}
	e.ApplySubcategories(input.Subcategories)
	e, err = t.App.Store.CreateEvaluation(ctx, e)
	if err != nil {
		return toolFailure("Failed to log evaluation", err), nil, nil
	}
	return toolJSON(e)
}

func (t *Tools) UpdateEvaluation(ctx context.Context, _ *mcp.CallToolRequest, input UpdateEvaluationInput) (*mcp.CallToolResult, any, error) {
	e, err := t.App.Store.Evaluation(input.ID)
	if err != nil {
		return toolFailure("Failed to update evaluation", err), nil, nil
	}
	if input.Date != "" {
		if e.Date, err = parseDate(input.Date, t.now()); err != nil {
			return toolError("Invalid date: %v", err), nil, nil
		}
	}
	if input.Event != "" {
		e.Event = input.Event
	}
	if input.Motion != "" {
		e.Motion = input.Motion
	}
	if input.Strength != "" {
		e.Strength = input.Strength
	}
	if input.Weakness != "" {
		e.Weakness = input.Weakness
	}
	if input.Action != "" {
		e.Action = input.Action
	}
	if res := checkReflections(e.Strength, e.Weakness, e.Action); res != nil {
		return res, nil, nil
	}
	if input.Subcategories != nil {
		if res := checkSubscores(*input.Subcategories); res != nil {
			return res, nil, nil
		}
		e.ApplySubcategories(*input.Subcategories)
	}
	e, err = t.App.Store.UpdateEvaluation(ctx, e)
	if err != nil {
		return toolFailure("Failed to update evaluation", err), nil, nil
	}
	return toolJSON(e)
}

func (t *Tools) DeleteEvaluation(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	removed, err := t.App.Store.DeleteEvaluation(ctx, input.ID)
	return deleted("evaluation", input.ID, removed, err)
}

func (t *Tools) EvaluationInsights(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	summary := insights.Evaluations(t.App.Store.Evaluations())
	if summary.Rounds == 0 {
		return toolText("No rounds logged yet."), nil, nil
	}
	return toolJSON(summary)
}
