package store

import (
	"time"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/google/uuid"
)

// Task placement for a saved plan.
const (
	taskStartHour   = 9
	taskDuration    = time.Hour
	taskDaysPerWeek = 5
)

// LayoutTasks turns a plan into scheduled tasks. Milestone i covers the week
// starting i weeks after start; its task j falls j%5 days into that week, from
// 09:00 to 10:00 UTC. milestoneIDs[i] links tasks to their milestone when
// present.
func LayoutTasks(userID, goalID string, milestones []domain.Milestone, milestoneIDs []string, start time.Time) []domain.Task {
	start = start.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), taskStartHour, 0, 0, 0, time.UTC)

	var tasks []domain.Task
	for i, m := range milestones {
		var milestoneID string
		if i < len(milestoneIDs) {
			milestoneID = milestoneIDs[i]
		}
		weekStart := day.AddDate(0, 0, 7*i)

		for j, title := range m.Tasks {
			begin := weekStart.AddDate(0, 0, j%taskDaysPerWeek)
			tasks = append(tasks, domain.Task{
				ID:          uuid.NewString(),
				UserID:      userID,
				GoalID:      goalID,
				MilestoneID: milestoneID,
				Title:       title,
				StartTime:   begin,
				EndTime:     begin.Add(taskDuration),
				State:       domain.TaskScheduled,
				Priority:    domain.PriorityStandard,
				TriggerType: domain.TriggerTime,
				IsRecurring: true,
			})
		}
	}
	return tasks
}
