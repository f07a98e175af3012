// Package agent serves goal-planning conversations over HTTP.
//
// A Service keeps live planner agents in a Cache, restores them from the
// store on a miss, persists every turn, and saves the plan once it is
// confirmed. Handler exposes the Service under /goals.
package agent

import (
	"github.com/flux-life/flux-planner/internal/domain"
)

// StartRequest is the body of POST /goals/start.
type StartRequest struct {
	// UserID defaults to the caller's anonymous identity.
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// RespondRequest is the body of POST /goals/{conversationID}/respond.
type RespondRequest struct {
	Message string `json:"message"`
}

// GoalConversationResponse is returned by every conversation endpoint.
type GoalConversationResponse struct {
	ConversationID  string                   `json:"conversation_id"`
	State           domain.ConversationState `json:"state"`
	Message         string                   `json:"message"`
	SuggestedAction *string                  `json:"suggested_action"`
	Plan            []domain.Milestone       `json:"plan"`
	GoalID          *string                  `json:"goal_id"`
}

// GoalPage is one page of a user's saved goals.
type GoalPage struct {
	Items  []*domain.Goal `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *StartRequest) message() string   { return r.Message }
func (r *RespondRequest) message() string { return r.Message }
