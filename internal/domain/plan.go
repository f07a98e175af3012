package domain

import "time"

// Milestone is one week's titled bundle of recurring tasks.
type Milestone struct {
	Week  int      `json:"week"`
	Title string   `json:"title"`
	Tasks []string `json:"tasks"`
}

// Goal categories and statuses written when a plan is confirmed.
const (
	CategoryHealthFitness  = "health_fitness"
	GoalStatusActive       = "active"
	MilestoneStatusPending = "pending"
)

// TaskState is the lifecycle state of a scheduled task.
type TaskState string

const (
	TaskScheduled TaskState = "scheduled"
	TaskDrifted   TaskState = "drifted"
	TaskCompleted TaskState = "completed"
	TaskMissed    TaskState = "missed"
)

// TaskPriority ranks how important it is not to miss a task.
type TaskPriority string

const (
	PriorityStandard    TaskPriority = "standard"
	PriorityImportant   TaskPriority = "important"
	PriorityMustNotMiss TaskPriority = "must-not-miss"
)

// TriggerType says what fires a task reminder.
type TriggerType string

const (
	TriggerTime          TriggerType = "time"
	TriggerOnLeavingHome TriggerType = "on_leaving_home"
)

// Goal is a confirmed plan's top-level record.
type Goal struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Title      string            `json:"title"`
	Category   string            `json:"category"`
	Timeline   string            `json:"timeline,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	Milestones []MilestoneRecord `json:"milestones,omitempty"`
}

// MilestoneRecord is a persisted milestone.
type MilestoneRecord struct {
	ID         string `json:"id"`
	GoalID     string `json:"goal_id"`
	WeekNumber int    `json:"week_number"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Tasks      []Task `json:"tasks,omitempty"`
}

// Task is a persisted, scheduled task.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	GoalID      string       `json:"goal_id"`
	MilestoneID string       `json:"milestone_id,omitempty"`
	Title       string       `json:"title"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	State       TaskState    `json:"state"`
	Priority    TaskPriority `json:"priority"`
	TriggerType TriggerType  `json:"trigger_type"`
	IsRecurring bool         `json:"is_recurring"`
}

// SavedPlan lists the ids created when a plan is persisted.
type SavedPlan struct {
	GoalID       string   `json:"goal_id"`
	MilestoneIDs []string `json:"milestone_ids"`
	TaskIDs      []string `json:"task_ids"`
}
