package domain

import (
	"fmt"
	"time"
)

// ConversationState tracks where a goal-planning dialogue stands.
type ConversationState string

const (
	StateIdle                  ConversationState = "IDLE"
	StateGatheringTimeline     ConversationState = "GATHERING_TIMELINE"
	StateGatheringCurrentState ConversationState = "GATHERING_CURRENT_STATE"
	StateGatheringTarget       ConversationState = "GATHERING_TARGET"
	StateGatheringPreferences  ConversationState = "GATHERING_PREFERENCES"
	// StatePlanReady is kept for stored conversations; no transition assigns it.
	StatePlanReady            ConversationState = "PLAN_READY"
	StateAwaitingConfirmation ConversationState = "AWAITING_CONFIRMATION"
	StateConfirmed            ConversationState = "CONFIRMED"
)

var knownStates = map[ConversationState]struct{}{
	StateIdle:                  {},
	StateGatheringTimeline:     {},
	StateGatheringCurrentState: {},
	StateGatheringTarget:       {},
	StateGatheringPreferences:  {},
	StatePlanReady:             {},
	StateAwaitingConfirmation:  {},
	StateConfirmed:             {},
}

// ParseConversationState returns the state named by s.
func ParseConversationState(s string) (ConversationState, error) {
	st := ConversationState(s)
	if _, ok := knownStates[st]; !ok {
		return "", fmt.Errorf("unknown conversation state %q", s)
	}
	return st, nil
}

// Message roles stored in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the persisted row behind a planning dialogue.
// Snapshot holds the serialized agent state.
type Conversation struct {
	ID        string
	UserID    string
	GoalID    string
	Status    string
	Snapshot  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationStatusOpen is the status of a conversation that has no state yet.
const ConversationStatusOpen = "open"
