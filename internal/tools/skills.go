package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/insights"
	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// --- Input types ---

type LogSkillInput struct {
	Skill  string  `json:"skill" jsonschema:"Skill label, e.g. Rebuttal"`
	Score  float64 `json:"score" jsonschema:"Self-assessed score from 1 to 10"`
	Target string  `json:"target" jsonschema:"What to improve next (at least 20 characters)"`
}

type UpdateSkillInput struct {
	ID     string   `json:"id" jsonschema:"Skill entry id"`
	Skill  string   `json:"skill,omitempty" jsonschema:"New label (unchanged when empty)"`
	Score  *float64 `json:"score,omitempty" jsonschema:"New score from 1 to 10 (unchanged when absent)"`
	Target string   `json:"target,omitempty" jsonschema:"New target (unchanged when empty)"`
}

// --- Handlers ---

func (t *Tools) ListSkills(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(orEmpty(t.App.Store.Skills()))
}

func (t *Tools) LogSkill(ctx context.Context, _ *mcp.CallToolRequest, input LogSkillInput) (*mcp.CallToolResult, any, error) {
	if res := minLength("target", input.Target, MinSkillTarget); res != nil {
		return res, nil, nil
	}
	sk, err := t.App.Store.CreateSkill(ctx, models.Skill{Skill: input.Skill, Score: input.Score, Target: input.Target})
	if err != nil {
		return toolFailure("Failed to log skill", err), nil, nil
	}
	return toolJSON(sk)
}

func (t *Tools) UpdateSkill(ctx context.Context, _ *mcp.CallToolRequest, input UpdateSkillInput) (*mcp.CallToolResult, any, error) {
	sk, err := t.App.Store.Skill(input.ID)
	if err != nil {
		return toolFailure("Failed to update skill", err), nil, nil
	}
	if input.Target != "" {
		if res := minLength("target", input.Target, MinSkillTarget); res != nil {
			return res, nil, nil
		}
		sk.Target = input.Target
	}
	if input.Skill != "" {
		sk.Skill = input.Skill
	}
	if input.Score != nil {
		sk.Score = *input.Score
	}
	sk, err = t.App.Store.UpdateSkill(ctx, sk)
	if err != nil {
		return toolFailure("Failed to update skill", err), nil, nil
	}
	return toolJSON(sk)
}

func (t *Tools) DeleteSkill(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	removed, err := t.App.Store.DeleteSkill(ctx, input.ID)
	return deleted("skill", input.ID, removed, err)
}

func (t *Tools) SkillInsights(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(insights.Skills(t.App.Store.Skills()))
}
