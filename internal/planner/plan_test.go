package planner

import (
	"strings"
	"testing"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanAcceptsModelPlan(t *testing.T) {
	plan, err := ParsePlan(modelPlanJSON(t))
	require.NoError(t, err)
	assert.Equal(t, modelPlan(), plan)
}

func TestParsePlanRejects(t *testing.T) {
	withPlan := func(mutate func([]domain.Milestone) []domain.Milestone) string {
		return mustPlanJSON(t, mutate(modelPlan()))
	}
	cases := map[string]string{
		"empty":         "",
		"prose":         "Sure! Here's your plan.",
		"array":         `[{"week":1}]`,
		"no plan key":   `{"milestones":[]}`,
		"null plan":     `{"plan":null}`,
		"trailing data": modelPlanJSON(t) + ` {"plan":[]}`,
		"missing week":  strings.Replace(modelPlanJSON(t), `"week":3,`, ``, 1),
		"missing title": strings.Replace(modelPlanJSON(t), `"title":"Week 2 focus",`, ``, 1),
		"missing tasks": `{"plan":[{"week":1,"title":"a"}]}`,
		"tasks string":  strings.Replace(modelPlanJSON(t), `"tasks":[`, `"tasks":"x","t":[`, 1),
		"seven weeks": withPlan(func(p []domain.Milestone) []domain.Milestone {
			return append(p, domain.Milestone{Week: 7, Title: "extra", Tasks: []string{"a", "b", "c"}})
		}),
		"out of order": withPlan(func(p []domain.Milestone) []domain.Milestone {
			p[0], p[1] = p[1], p[0]
			return p
		}),
		"duplicate week": withPlan(func(p []domain.Milestone) []domain.Milestone {
			p[3].Week = 3
			return p
		}),
		"blank title": withPlan(func(p []domain.Milestone) []domain.Milestone {
			p[4].Title = "  "
			return p
		}),
		"blank task": withPlan(func(p []domain.Milestone) []domain.Milestone {
			p[5].Tasks[1] = ""
			return p
		}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan(raw)
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestFallbackPlanShape(t *testing.T) {
	plan := FallbackPlan()
	require.Len(t, plan, PlanWeeks)
	for i, m := range plan {
		assert.Equal(t, i+1, m.Week)
		assert.NotEmpty(t, m.Title)
		assert.GreaterOrEqual(t, len(m.Tasks), 3)
	}

	plan[0].Tasks[0] = "mutated"
	assert.Equal(t, "30-min walk daily", FallbackPlan()[0].Tasks[0])
}

func TestPlanPromptNeedsAllFacts(t *testing.T) {
	var f Facts
	for _, v := range []string{"gym", "June", "80kg", "75kg"} {
		require.NoError(t, f.record(Fact(f.Len()), v))
	}
	_, err := PlanPrompt(f)
	assert.ErrorIs(t, err, ErrMissingFact)

	require.NoError(t, f.record(FactPreferences, "running"))
	prompt, err := PlanPrompt(f)
	require.NoError(t, err)
	assert.Contains(t, prompt, "- Preferences: running")
	assert.Contains(t, prompt, `"plan": [`)
}
