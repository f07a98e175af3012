package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flux-life/flux-planner/internal/domain"
)

// PlanWeeks is the number of milestones in every plan.
const PlanWeeks = 6

const minTasksPerWeek = 3

// ErrInvalidPlan is returned by ParsePlan for text that is not a usable plan.
var ErrInvalidPlan = errors.New("invalid plan")

const planPromptTemplate = `You are Flux, an AI life assistant. Based on the conversation context below,
generate a structured 6-week health & fitness plan.

Context:
- Goal: %s
- Timeline: %s
- Current state: %s
- Target: %s
- Preferences: %s

Generate a JSON object with this exact structure:
{
  "plan": [
    {
      "week": 1,
      "title": "Week 1 milestone title",
      "tasks": ["task 1", "task 2", "task 3"]
    }
  ]
}

Rules:
- Generate exactly 6 milestones (weeks 1-6).
- Each milestone should have 3-5 concrete, recurring tasks.
- Tasks should be specific and actionable (e.g. "30-min gym session: chest & triceps").
- Progress from lighter to more intense across the weeks.
- Include a mix of the user's preferences (gym, diet, etc.).
- Make it realistic and achievable.

Respond with ONLY the JSON object, nothing else.
`

// PlanPrompt builds the structured plan request from a complete set of facts.
func PlanPrompt(facts Facts) (string, error) {
	var values [factCount]any
	for fact := FactGoal; fact < factCount; fact++ {
		v, err := facts.require(fact)
		if err != nil {
			return "", err
		}
		values[fact] = v
	}
	return fmt.Sprintf(planPromptTemplate, values[:]...), nil
}

// generatePlan asks the gateway for a plan and returns the fallback plan on
// any provider, parse or validation failure. Only missing facts are errors.
func (a *Agent) generatePlan(ctx context.Context) ([]domain.Milestone, error) {
	prompt, err := PlanPrompt(a.Facts)
	if err != nil {
		return nil, err
	}

	raw, err := a.gateway.GenerateStructuredPlan(ctx, prompt)
	if err != nil {
		a.logger.Warn("Plan generation failed, using fallback plan",
			"conversation_id", a.ConversationID,
			"error", err,
		)
		return FallbackPlan(), nil
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		a.logger.Warn("Generated plan rejected, using fallback plan",
			"conversation_id", a.ConversationID,
			"response_length", len(raw),
			"error", err,
		)
		return FallbackPlan(), nil
	}
	return plan, nil
}

type rawPlan struct {
	Plan *[]rawMilestone `json:"plan"`
}

type rawMilestone struct {
	Week  *int      `json:"week"`
	Title *string   `json:"title"`
	Tasks *[]string `json:"tasks"`
}

// ParsePlan decodes `{"plan": [...]}` and checks it is a complete plan:
// exactly 6 milestones numbered 1 to 6 in order, each with a title and at
// least 3 non-blank tasks.
func ParsePlan(raw string) ([]domain.Milestone, error) {
	var doc rawPlan
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrInvalidPlan)
	}
	if doc.Plan == nil {
		return nil, fmt.Errorf("%w: missing \"plan\"", ErrInvalidPlan)
	}

	items := *doc.Plan
	if len(items) != PlanWeeks {
		return nil, fmt.Errorf("%w: %d milestones, want %d", ErrInvalidPlan, len(items), PlanWeeks)
	}

	plan := make([]domain.Milestone, 0, len(items))
	for i, item := range items {
		switch {
		case item.Week == nil:
			return nil, fmt.Errorf("%w: milestone %d has no week", ErrInvalidPlan, i)
		case item.Title == nil:
			return nil, fmt.Errorf("%w: milestone %d has no title", ErrInvalidPlan, i)
		case item.Tasks == nil:
			return nil, fmt.Errorf("%w: milestone %d has no tasks", ErrInvalidPlan, i)
		}
		m := domain.Milestone{Week: *item.Week, Title: *item.Title, Tasks: *item.Tasks}
		if err := validatePlannedMilestone(m, i+1); err != nil {
			return nil, err
		}
		plan = append(plan, m)
	}
	return plan, nil
}

func validatePlannedMilestone(m domain.Milestone, week int) error {
	if m.Week != week {
		return fmt.Errorf("%w: milestone %d has week %d", ErrInvalidPlan, week, m.Week)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: week %d has an empty title", ErrInvalidPlan, week)
	}
	if len(m.Tasks) < minTasksPerWeek {
		return fmt.Errorf("%w: week %d has %d tasks, want at least %d", ErrInvalidPlan, week, len(m.Tasks), minTasksPerWeek)
	}
	for _, task := range m.Tasks {
		if strings.TrimSpace(task) == "" {
			return fmt.Errorf("%w: week %d has a blank task", ErrInvalidPlan, week)
		}
	}
	return nil
}

// FallbackPlan returns the fixed plan used when no model plan is available.
// Each call returns a fresh copy.
func FallbackPlan() []domain.Milestone {
	return []domain.Milestone{
		{Week: 1, Title: "Foundation Week", Tasks: []string{
			"30-min walk daily",
			"Track all meals in a food journal",
			"Drink 8 glasses of water daily",
			"Replace sugary drinks with water or herbal tea",
		}},
		{Week: 2, Title: "Building Momentum", Tasks: []string{
			"3× gym sessions (full body)",
			"Meal prep Sunday for the week",
			"30-min cardio 2× per week",
			"Cut processed snacks",
		}},
		{Week: 3, Title: "Increasing Intensity", Tasks: []string{
			"4× gym sessions (upper/lower split)",
			"Add 10-min HIIT after strength training",
			"Increase protein intake to 1.6g/kg",
			"Reduce portion sizes by 10%",
		}},
		{Week: 4, Title: "Consistency Check", Tasks: []string{
			"4× gym sessions",
			"2× cardio sessions (30 min each)",
			"Weekly weigh-in and progress photo",
			"Try one new healthy recipe",
		}},
		{Week: 5, Title: "Push Phase", Tasks: []string{
			"5× gym sessions",
			"Increase cardio intensity",
			"Fine-tune macros based on progress",
			"Start light core routine daily",
		}},
		{Week: 6, Title: "Final Sprint & Maintain", Tasks: []string{
			"5× gym sessions with peak intensity",
			"Maintain calorie target",
			"Final weigh-in and measurements",
			"Plan maintenance routine for post-goal",
		}},
	}
}
