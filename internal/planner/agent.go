// Package planner implements the goal-planning conversation state machine.
//
// An Agent walks a user from a goal statement through timeline, current
// state, target and preferences to a confirmed 6-week plan. Model replies
// come from an llm.Gateway; any gateway failure is replaced by canned text
// or the fallback plan, so a conversation always moves forward.
//
// An Agent is not safe for concurrent use. Callers must run at most one
// turn per conversation at a time.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/flux-life/flux-planner/internal/llm"
)

var (
	// ErrAlreadyStarted is returned by Start once the agent has left IDLE.
	ErrAlreadyStarted = errors.New("conversation already started")
	// ErrFactOrder is returned when a fact would be overwritten or skipped.
	ErrFactOrder = errors.New("fact recorded out of order")
	// ErrMissingFact is returned when a fact an earlier turn should have
	// recorded is absent.
	ErrMissingFact = errors.New("required fact missing")
)

// Turn is the result of one conversation turn.
type Turn struct {
	Message string
	State   domain.ConversationState
	// SuggestedAction is a quick reply to offer, or "" for none.
	SuggestedAction string
	Plan            []domain.Milestone
}

// Agent owns one conversation's state, facts, transcript and plan.
type Agent struct {
	ConversationID string
	UserID         string
	State          domain.ConversationState
	Facts          Facts
	Messages       []domain.Message
	// Plan is nil until preferences are recorded, then holds 6 milestones.
	Plan []domain.Milestone

	gateway llm.Gateway
	logger  *slog.Logger
}

// New creates an idle agent. A nil gateway behaves as llm.Offline.
func New(conversationID, userID string, gateway llm.Gateway, logger *slog.Logger) *Agent {
	if gateway == nil {
		gateway = llm.Offline{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		ConversationID: conversationID,
		UserID:         userID,
		State:          domain.StateIdle,
		gateway:        gateway,
		logger:         logger,
	}
}

// AssignConversationID sets the id once storage has allocated one.
func (a *Agent) AssignConversationID(id string) {
	a.ConversationID = id
}

// Start opens the conversation with the user's first goal statement.
func (a *Agent) Start(ctx context.Context, initialMessage string) (Turn, error) {
	if a.State != domain.StateIdle {
		return Turn{}, fmt.Errorf("%w: state is %s", ErrAlreadyStarted, a.State)
	}

	n := len(a.Messages)
	a.appendMessage(domain.RoleUser, initialMessage)
	turn, err := a.classifyGoal(ctx, initialMessage, startOutOfScopeMessage,
		"The user said: \"%s\". This is a health & fitness goal. "+
			"Ask them about their timeline/target date. Be warm and encouraging.")
	if err != nil {
		a.Messages = a.Messages[:n]
		return Turn{}, err
	}
	a.appendMessage(domain.RoleAssistant, turn.Message)
	return turn, nil
}

// ProcessMessage runs one turn for a user message.
func (a *Agent) ProcessMessage(ctx context.Context, userMessage string) (Turn, error) {
	n := len(a.Messages)
	a.appendMessage(domain.RoleUser, userMessage)

	var (
		turn Turn
		err  error
	)
	if handle, ok := handlers[a.State]; ok {
		turn, err = handle(a, ctx, userMessage)
		if err != nil {
			// A failed turn leaves no trace in the transcript.
			a.Messages = a.Messages[:n]
			return Turn{}, err
		}
	} else {
		turn = Turn{Message: completedMessage, State: a.State}
	}

	a.appendMessage(domain.RoleAssistant, turn.Message)
	return turn, nil
}

type handler func(a *Agent, ctx context.Context, message string) (Turn, error)

// handlers is the transition table. States without an entry are complete.
var handlers = map[domain.ConversationState]handler{
	domain.StateIdle:                  (*Agent).handleIdle,
	domain.StateGatheringTimeline:     (*Agent).handleTimeline,
	domain.StateGatheringCurrentState: (*Agent).handleCurrentState,
	domain.StateGatheringTarget:       (*Agent).handleTarget,
	domain.StateGatheringPreferences:  (*Agent).handlePreferences,
	domain.StateAwaitingConfirmation:  (*Agent).handleConfirmation,
}

func (a *Agent) handleIdle(ctx context.Context, message string) (Turn, error) {
	return a.classifyGoal(ctx, message, idleOutOfScopeMessage,
		"The user said: \"%s\". Ask about their timeline/event date.")
}

// classifyGoal records message as the goal when it names a supported goal.
// instruction receives the message as its only argument.
func (a *Agent) classifyGoal(ctx context.Context, message, outOfScope, instruction string) (Turn, error) {
	if !containsAny(message, goalKeywords) {
		return Turn{Message: outOfScope, State: a.State}, nil
	}
	if err := a.Facts.record(FactGoal, message); err != nil {
		return Turn{}, err
	}
	a.State = domain.StateGatheringTimeline
	return Turn{Message: a.reply(ctx, fmt.Sprintf(instruction, message)), State: a.State}, nil
}

func (a *Agent) handleTimeline(ctx context.Context, message string) (Turn, error) {
	goal, err := a.Facts.require(FactGoal)
	if err != nil {
		return Turn{}, err
	}
	if err := a.Facts.record(FactTimeline, message); err != nil {
		return Turn{}, err
	}
	a.State = domain.StateGatheringCurrentState

	text := a.reply(ctx, fmt.Sprintf(
		"The user's goal is: \"%s\". Their timeline/event is: \"%s\". "+
			"Now ask about their current state (e.g. current weight). Be gentle and non-judgmental.",
		goal, message))
	return Turn{Message: text, State: a.State}, nil
}

func (a *Agent) handleCurrentState(ctx context.Context, message string) (Turn, error) {
	if err := a.Facts.record(FactCurrentState, message); err != nil {
		return Turn{}, err
	}
	a.State = domain.StateGatheringTarget

	text := a.reply(ctx, fmt.Sprintf(
		"User's current state: \"%s\". "+
			"Ask what their target is (e.g. target weight), and offer to suggest a healthy goal.",
		message))
	return Turn{Message: text, State: a.State, SuggestedAction: SuggestGoalAction}, nil
}

func (a *Agent) handleTarget(ctx context.Context, message string) (Turn, error) {
	var instruction string
	if containsAny(message, []string{"suggest"}) {
		current, err := a.Facts.require(FactCurrentState)
		if err != nil {
			return Turn{}, err
		}
		timeline, err := a.Facts.require(FactTimeline)
		if err != nil {
			return Turn{}, err
		}
		// The suggestion stays in the reply text; only the sentinel is recorded.
		if err := a.Facts.record(FactTarget, SuggestedTarget); err != nil {
			return Turn{}, err
		}
		instruction = fmt.Sprintf(
			"The user wants you to suggest a healthy target. Their current state: \"%s\". Timeline: \"%s\". "+
				"Suggest a realistic, healthy target and then ask about their exercise/diet preferences.",
			current, timeline)
	} else {
		if err := a.Facts.record(FactTarget, message); err != nil {
			return Turn{}, err
		}
		instruction = fmt.Sprintf(
			"User's target: \"%s\". Now ask about their exercise and diet preferences "+
				"(gym, home workouts, running, diet changes, etc.).",
			message)
	}

	a.State = domain.StateGatheringPreferences
	return Turn{Message: a.reply(ctx, instruction), State: a.State}, nil
}

func (a *Agent) handlePreferences(ctx context.Context, message string) (Turn, error) {
	if err := a.Facts.record(FactPreferences, message); err != nil {
		return Turn{}, err
	}
	a.State = domain.StateAwaitingConfirmation

	plan, err := a.generatePlan(ctx)
	if err != nil {
		return Turn{}, err
	}
	a.Plan = plan

	return Turn{
		Message:         planReadyMessage,
		State:           a.State,
		SuggestedAction: LooksGoodAction,
		Plan:            a.Plan,
	}, nil
}

func (a *Agent) handleConfirmation(ctx context.Context, message string) (Turn, error) {
	if containsAny(message, affirmativeKeywords) {
		a.State = domain.StateConfirmed
		return Turn{Message: confirmedMessage, State: a.State, Plan: a.Plan}, nil
	}

	// Feedback is acknowledged but the plan is not regenerated.
	text := a.reply(ctx, fmt.Sprintf(
		"The user wants to modify the plan. They said: \"%s\". "+
			"Acknowledge their feedback and ask what they'd like to change.",
		message))
	return Turn{Message: text, State: a.State, Plan: a.Plan}, nil
}

// reply asks the gateway for the next message and falls back to the canned
// reply for the current state on any failure.
func (a *Agent) reply(ctx context.Context, instruction string) string {
	text, err := a.gateway.Converse(ctx, a.Messages, instruction)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		a.logger.Warn("Reply generation failed, using fallback",
			"conversation_id", a.ConversationID,
			"state", a.State,
			"error", err,
		)
		return FallbackReply(a.State)
	}
	return text
}

func (a *Agent) appendMessage(role, content string) {
	a.Messages = append(a.Messages, domain.Message{Role: role, Content: content})
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
