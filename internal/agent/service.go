package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/flux-life/flux-planner/internal/llm"
	"github.com/flux-life/flux-planner/internal/planner"
	"github.com/flux-life/flux-planner/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrConversationNotFound is returned for an unknown conversation ID.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrTurnInProgress is returned when another turn holds the conversation.
	ErrTurnInProgress = errors.New("conversation turn already in progress")
	// ErrGoalNotFound is returned for an unknown saved goal ID.
	ErrGoalNotFound = errors.New("goal not found")
)

// Result is the outcome of a conversation turn.
type Result struct {
	ConversationID string
	Turn           planner.Turn
	// GoalID is set on the turn that confirmed and saved the plan.
	GoalID string
}

// Service runs goal-planning turns against cached or restored agents.
type Service struct {
	repo    store.Repository
	cache   Cache
	gateway llm.Gateway
	log     ConversationLogger
	logger  *slog.Logger
	locks   turnLocks
}

// NewService creates a Service. A nil conversation logger discards events.
func NewService(repo store.Repository, cache Cache, gateway llm.Gateway, convLog ConversationLogger, logger *slog.Logger) *Service {
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		gateway: gateway,
		log:     convLog,
		logger:  logger,
		locks:   turnLocks{held: make(map[string]struct{})},
	}
}

// Start opens a conversation for userID with the first message.
func (s *Service) Start(ctx context.Context, userID, message string) (*Result, error) {
	// A started turn runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	a := planner.New("", userID, s.gateway, s.logger)
	turn, err := a.Start(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}

	id, err := s.repo.CreateConversation(ctx, userID)
	persisted := err == nil
	if err != nil {
		// Keep going in memory; the conversation lives until the cache drops it.
		id = uuid.NewString()
		s.logger.Warn("Failed to create conversation, continuing in memory",
			"conversation_id", id,
			"user_id", userID,
			"error", err,
		)
	}
	a.AssignConversationID(id)
	if persisted {
		s.persist(ctx, a)
	}
	s.cache.Put(id, a)

	s.logTurn(a, message, turn)
	s.logger.Info("Goal conversation started", "conversation_id", id, "user_id", userID, "state", turn.State)
	return &Result{ConversationID: id, Turn: turn}, nil
}

// Respond runs one turn of an existing conversation.
func (s *Service) Respond(ctx context.Context, conversationID, message string) (*Result, error) {
	if !s.locks.tryAcquire(conversationID) {
		return nil, ErrTurnInProgress
	}
	defer s.locks.release(conversationID)

	a, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	// From here the turn runs to completion even if the caller goes away;
	// the gateway bounds its own calls with a timeout.
	ctx = context.WithoutCancel(ctx)
	before := a.State
	turn, err := a.ProcessMessage(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}

	result := &Result{ConversationID: conversationID, Turn: turn}
	if before != domain.StateConfirmed && a.State == domain.StateConfirmed && len(a.Plan) > 0 {
		saved, err := s.repo.SaveCompletePlan(ctx, store.PlanRecord{
			UserID:         a.UserID,
			ConversationID: conversationID,
			Title:          a.Facts.Goal(),
			Timeline:       a.Facts.Timeline(),
			Milestones:     a.Plan,
		})
		if err != nil {
			s.logger.Warn("Failed to save confirmed plan", "conversation_id", conversationID, "error", err)
		} else {
			result.GoalID = saved.GoalID
		}
	}

	s.persist(ctx, a)
	s.cache.Put(conversationID, a)
	s.logTurn(a, message, turn)
	return result, nil
}

// Get returns the agent behind a conversation for reconnection.
func (s *Service) Get(ctx context.Context, conversationID string) (planner.Snapshot, error) {
	if !s.locks.tryAcquire(conversationID) {
		return planner.Snapshot{}, ErrTurnInProgress
	}
	defer s.locks.release(conversationID)

	a, err := s.load(ctx, conversationID)
	if err != nil {
		return planner.Snapshot{}, err
	}
	return a.Snapshot(), nil
}

// ListGoals returns one page of a user's saved goals.
func (s *Service) ListGoals(ctx context.Context, userID string, limit, offset int) (*GoalPage, error) {
	goals, total, err := s.repo.ListGoals(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return &GoalPage{Items: goals, Total: total, Limit: limit, Offset: offset}, nil
}

// GetGoal returns a saved goal with milestones and tasks.
func (s *Service) GetGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	goal, err := s.repo.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if goal == nil {
		return nil, ErrGoalNotFound
	}
	return goal, nil
}

// load returns the cached agent or restores it from the store.
func (s *Service) load(ctx context.Context, conversationID string) (*planner.Agent, error) {
	if a, ok := s.cache.Get(conversationID); ok {
		return a, nil
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	a, err := planner.Restore(conv.Snapshot, s.gateway, s.logger)
	if err != nil {
		s.logger.Warn("Failed to restore conversation", "conversation_id", conversationID, "error", err)
		return nil, err
	}
	a.AssignConversationID(conv.ID)
	s.cache.Put(conversationID, a)
	s.logger.Debug("Conversation restored from store", "conversation_id", conversationID, "state", a.State)
	return a, nil
}

// persist saves the agent snapshot. Failures are logged, not returned.
func (s *Service) persist(ctx context.Context, a *planner.Agent) {
	data, err := a.MarshalJSON()
	if err != nil {
		s.logger.Error("Failed to encode conversation", "conversation_id", a.ConversationID, "error", err)
		return
	}
	if err := s.repo.UpdateConversation(ctx, a.ConversationID, string(a.State), data); err != nil {
		s.logger.Warn("Failed to persist conversation", "conversation_id", a.ConversationID, "error", err)
	}
}

// logTurn records the exchange from the server's point of view: user
// messages are inbound, replies outbound.
func (s *Service) logTurn(a *planner.Agent, message string, turn planner.Turn) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	s.log.Log(ConversationLogEvent{
		Timestamp:      now,
		UserID:         a.UserID,
		ConversationID: a.ConversationID,
		Channel:        "goals_http",
		Direction:      "inbound",
		EventType:      "user_message",
		ContentRaw:     message,
	})
	s.log.Log(ConversationLogEvent{
		Timestamp:      now,
		UserID:         a.UserID,
		ConversationID: a.ConversationID,
		Channel:        "goals_http",
		Direction:      "outbound",
		EventType:      "assistant_message",
		State:          string(turn.State),
		ContentRaw:     turn.Message,
		Meta: map[string]any{
			"suggested_action": turn.SuggestedAction,
			"plan_weeks":       len(turn.Plan),
		},
	})
}

// Close releases the conversation logger.
func (s *Service) Close() error {
	return s.log.Close()
}

// turnLocks admits one turn per conversation at a time.
type turnLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (l *turnLocks) tryAcquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

func (l *turnLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}
