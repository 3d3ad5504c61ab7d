// Package insights derives read-only summaries from the stored records.
// Every input slice is expected newest first, the order the store lists in.
package insights

import (
	"cmp"
	"math"
	"slices"

	"github.com/wagnerlima/memory-cloud/debate-vault/internal/models"
)

// RecentWindow is how many of the latest skill entries the recent average
// covers.
const RecentWindow = 5

// Dashboard is the overview shown on the landing page.
type Dashboard struct {
	Resources          int                 `json:"resources"`
	Speeches           int                 `json:"speeches"`
	Skills             int                 `json:"skills"`
	Evaluations        int                 `json:"evaluations"`
	BestTotal          int                 `json:"bestTotal"`
	LatestSkillScore   *float64            `json:"latestSkillScore,omitempty"`
	RecentSkillAverage float64             `json:"recentSkillAverage"`
	RecentRounds       []models.Evaluation `json:"recentRounds"`
}

// Counts is the set of collections a dashboard summarises.
type Counts struct {
	Resources   []models.Resource
	Speeches    []models.Speech
	Skills      []models.Skill
	Evaluations []models.Evaluation
}

// BuildDashboard summarises c. RecentRounds holds up to three latest rounds.
func BuildDashboard(c Counts) Dashboard {
	d := Dashboard{
		Resources:    len(c.Resources),
		Speeches:     len(c.Speeches),
		Skills:       len(c.Skills),
		Evaluations:  len(c.Evaluations),
		RecentRounds: slices.Clone(c.Evaluations[:min(3, len(c.Evaluations))]),
	}
	for _, e := range c.Evaluations {
		d.BestTotal = max(d.BestTotal, e.Total)
	}
	if len(c.Skills) > 0 {
		latest := c.Skills[0].Score
		d.LatestSkillScore = &latest
		d.RecentSkillAverage = recentAverage(c.Skills)
	}
	return d
}

// SkillAverage is the mean score of one skill label.
type SkillAverage struct {
	Skill   string  `json:"skill"`
	Average float64 `json:"average"`
	Entries int     `json:"entries"`
}

// SkillSummary ranks skills by average, weakest first.
type SkillSummary struct {
	Entries       int            `json:"entries"`
	Averages      []SkillAverage `json:"averages"`
	Weakest       *SkillAverage  `json:"weakest,omitempty"`
	RecentAverage float64        `json:"recentAverage"`
}

// Skills groups skill entries by label.
func Skills(skills []models.Skill) SkillSummary {
	sum := make(map[string]float64)
	count := make(map[string]int)
	for _, s := range skills {
		sum[s.Skill] += s.Score
		count[s.Skill]++
	}

	out := SkillSummary{Entries: len(skills), Averages: []SkillAverage{}}
	for label, n := range count {
		out.Averages = append(out.Averages, SkillAverage{Skill: label, Average: round1(sum[label] / float64(n)), Entries: n})
	}
	slices.SortFunc(out.Averages, func(a, b SkillAverage) int {
		if c := cmp.Compare(a.Average, b.Average); c != 0 {
			return c
		}
		return cmp.Compare(a.Skill, b.Skill)
	})
	if len(out.Averages) > 0 {
		weakest := out.Averages[0]
		out.Weakest = &weakest
		out.RecentAverage = recentAverage(skills)
	}
	return out
}

// EvaluationSummary tracks round totals over time. Change is the latest
// total minus the earliest one.
type EvaluationSummary struct {
	Rounds       int     `json:"rounds"`
	LatestTotal  int     `json:"latestTotal"`
	AverageTotal float64 `json:"averageTotal"`
	BestTotal    int     `json:"bestTotal"`
	Change       int     `json:"change"`
	LatestAction string  `json:"latestAction,omitempty"`
}

// Evaluations summarises round totals.
func Evaluations(evals []models.Evaluation) EvaluationSummary {
	if len(evals) == 0 {
		return EvaluationSummary{}
	}
	latest, earliest := evals[0], evals[len(evals)-1]
	out := EvaluationSummary{
		Rounds:       len(evals),
		LatestTotal:  latest.Total,
		LatestAction: latest.Action,
		Change:       latest.Total - earliest.Total,
	}
	sum := 0
	for _, e := range evals {
		sum += e.Total
		out.BestTotal = max(out.BestTotal, e.Total)
	}
	out.AverageTotal = round1(float64(sum) / float64(len(evals)))
	return out
}

func recentAverage(skills []models.Skill) float64 {
	recent := skills[:min(RecentWindow, len(skills))]
	if len(recent) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range recent {
		sum += s.Score
	}
	return round1(sum / float64(len(recent)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
