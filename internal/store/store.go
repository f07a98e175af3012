// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/flux-life/flux-planner/internal/domain"
)

// Repository defines the interface for persisting users, conversations and
// confirmed plans. Lookups return (nil, nil) when the row does not exist.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// CreateConversation inserts an open conversation and returns its ID.
	CreateConversation(ctx context.Context, userID string) (string, error)

	// GetConversation retrieves a conversation with its serialized agent state.
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)

	// UpdateConversation stores the latest agent snapshot and status.
	UpdateConversation(ctx context.Context, conversationID, status string, snapshot []byte) error

	// SaveCompletePlan writes the goal, its milestones and tasks, and links
	// the conversation to the goal, in one transaction.
	SaveCompletePlan(ctx context.Context, plan PlanRecord) (*domain.SavedPlan, error)

	// ListGoals returns one page of a user's goals with their milestones,
	// newest first, and the user's total goal count.
	ListGoals(ctx context.Context, userID string, limit, offset int) ([]*domain.Goal, int, error)

	// GetGoal retrieves a goal with its milestones and their tasks.
	GetGoal(ctx context.Context, goalID string) (*domain.Goal, error)

	// DeleteStaleConversations removes conversations that never produced a
	// goal and were last updated longer than olderThan ago.
	DeleteStaleConversations(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// PlanRecord is a confirmed plan ready to be saved.
type PlanRecord struct {
	UserID         string
	ConversationID string
	// Title is the goal statement; DefaultGoalTitle is used when empty.
	Title      string
	Timeline   string
	Milestones []domain.Milestone
	// StartDate anchors week 1. The zero value means now.
	StartDate time.Time
}

// DefaultGoalTitle names a goal saved without a goal statement.
const DefaultGoalTitle = "Health & Fitness Goal"
