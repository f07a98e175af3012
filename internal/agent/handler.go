package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flux-life/flux-planner/internal/api"
	"github.com/flux-life/flux-planner/internal/config"
	"github.com/flux-life/flux-planner/internal/identity"
	"github.com/flux-life/flux-planner/internal/planner"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Handler exposes goal conversations over HTTP.
type Handler struct {
	service     *Service
	rateLimiter *RateLimiter
	maxBody     int64
	logger      *slog.Logger
}

// NewHandler creates a Handler. A nil cfg uses the defaults.
func NewHandler(service *Service, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	limit, window := 20, time.Minute
	maxBody := int64(defaultMaxRequestBodySize)
	if cfg != nil {
		limit, window = cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration
		maxBody = cfg.MaxRequestBody
	}
	return &Handler{
		service:     service,
		rateLimiter: NewRateLimiter(limit, window),
		maxBody:     maxBody,
		logger:      logger,
	}
}

// RegisterRoutes registers the goal and saved-goal routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.Post("/start", h.HandleStart)
		r.Get("/saved/{goalID}", h.HandleGetGoal)
		r.Post("/{conversationID}/respond", h.HandleRespond)
		r.Get("/{conversationID}", h.HandleGet)
	})
	r.Get("/users/{userID}/goals", h.HandleListGoals)
}

// Close stops the rate limiter.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
}

// HandleStart opens a conversation with the first user message.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}
	if userID == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	res, err := h.service.Start(r.Context(), userID, req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, conversationResponse(res))
}

// HandleRespond runs one turn of an existing conversation.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req RespondRequest
	if !h.decode(w, r, &req) {
		return
	}
	key := identity.UserIDFromContext(r.Context())
	if key == "" {
		key = conversationID
	}
	if !h.rateLimiter.Allow(key) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	res, err := h.service.Respond(r.Context(), conversationID, req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, conversationResponse(res))
}

// HandleGet returns the current state of a conversation for reconnection.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var last string
	if n := len(snap.Messages); n > 0 {
		last = snap.Messages[n-1].Content
	}
	api.JSON(w, http.StatusOK, GoalConversationResponse{
		ConversationID: snap.ConversationID,
		State:          snap.State,
		Message:        last,
		Plan:           snap.Plan,
	})
}

// HandleListGoals returns one page of a user's saved goals.
func (h *Handler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultPageLimit)
	if !ok || limit <= 0 || limit > maxPageLimit {
		api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		api.Error(w, http.StatusBadRequest, "offset must be >= 0")
		return
	}

	page, err := h.service.ListGoals(r.Context(), chi.URLParam(r, "userID"), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, page)
}

// HandleGetGoal returns one saved goal with milestones and tasks.
func (h *Handler) HandleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.service.GetGoal(r.Context(), chi.URLParam(r, "goalID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, goal)
}

// decode reads a JSON body carrying a non-empty message.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{ message() string }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if strings.TrimSpace(dst.message()) == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, planner.ErrRestoreFailed):
		api.Error(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, ErrGoalNotFound):
		api.Error(w, http.StatusNotFound, "goal not found")
	case errors.Is(err, ErrTurnInProgress):
		api.Error(w, http.StatusConflict, "conversation is busy")
	case errors.Is(err, planner.ErrAlreadyStarted):
		api.Error(w, http.StatusConflict, "conversation already started")
	default:
		h.logger.Error("Goal request failed",
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		api.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func conversationResponse(res *Result) GoalConversationResponse {
	return GoalConversationResponse{
		ConversationID:  res.ConversationID,
		State:           res.Turn.State,
		Message:         res.Turn.Message,
		SuggestedAction: optional(res.Turn.SuggestedAction),
		Plan:            res.Turn.Plan,
		GoalID:          optional(res.GoalID),
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
