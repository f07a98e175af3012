package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/flux-life/flux-planner/internal/llm"
)

// ErrRestoreFailed is returned when a snapshot cannot be turned back into an
// agent. The cause is wrapped alongside it.
var ErrRestoreFailed = errors.New("restore failed")

// Snapshot is the persisted form of an Agent.
type Snapshot struct {
	ConversationID string                   `json:"conversation_id"`
	UserID         string                   `json:"user_id"`
	State          domain.ConversationState `json:"state"`
	Context        Facts                    `json:"context"`
	Messages       []domain.Message         `json:"messages"`
	Plan           []domain.Milestone       `json:"plan"`
}

// factsForState is how many facts an agent holds in each state.
var factsForState = map[domain.ConversationState]int{
	domain.StateIdle:                  0,
	domain.StateGatheringTimeline:     1,
	domain.StateGatheringCurrentState: 2,
	domain.StateGatheringTarget:       3,
	domain.StateGatheringPreferences:  4,
	domain.StatePlanReady:             5,
	domain.StateAwaitingConfirmation:  5,
	domain.StateConfirmed:             5,
}

// Snapshot returns a deep copy of the agent's persistent state.
func (a *Agent) Snapshot() Snapshot {
	messages := make([]domain.Message, len(a.Messages))
	copy(messages, a.Messages)
	return Snapshot{
		ConversationID: a.ConversationID,
		UserID:         a.UserID,
		State:          a.State,
		Context:        a.Facts,
		Messages:       messages,
		Plan:           clonePlan(a.Plan),
	}
}

// MarshalJSON encodes the agent as its Snapshot.
func (a *Agent) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Snapshot())
}

// Restore rebuilds an agent from an encoded Snapshot. Every failure wraps
// ErrRestoreFailed; no fresh conversation is ever substituted.
func Restore(data []byte, gateway llm.Gateway, logger *slog.Logger) (*Agent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrRestoreFailed)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}

	agent := New(snap.ConversationID, snap.UserID, gateway, logger)
	agent.State = snap.State
	agent.Facts = snap.Context
	agent.Messages = snap.Messages
	agent.Plan = snap.Plan
	return agent, nil
}

// Validate checks that a snapshot describes an agent a turn can run on.
func (s Snapshot) Validate() error {
	if s.ConversationID == "" {
		return errors.New("missing conversation_id")
	}
	if s.UserID == "" {
		return errors.New("missing user_id")
	}
	if _, err := domain.ParseConversationState(string(s.State)); err != nil {
		return err
	}
	if want := factsForState[s.State]; s.Context.Len() != want {
		return fmt.Errorf("state %s needs %d facts, snapshot has %d", s.State, want, s.Context.Len())
	}
	if len(s.Plan) == 0 && (s.State == domain.StateAwaitingConfirmation || s.State == domain.StateConfirmed) {
		return fmt.Errorf("state %s has no plan", s.State)
	}
	for i, m := range s.Plan {
		if m.Week <= 0 {
			return fmt.Errorf("milestone %d has week %d", i, m.Week)
		}
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("milestone %d has an empty title", i)
		}
		if len(m.Tasks) == 0 {
			return fmt.Errorf("milestone %d has no tasks", i)
		}
	}
	for i, msg := range s.Messages {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			return fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
	}
	return nil
}

func clonePlan(plan []domain.Milestone) []domain.Milestone {
	if plan == nil {
		return nil
	}
	out := make([]domain.Milestone, len(plan))
	for i, m := range plan {
		out[i] = domain.Milestone{Week: m.Week, Title: m.Title, Tasks: append([]string(nil), m.Tasks...)}
	}
	return out
}
