package llm

import (
	"context"
	"fmt"

	"github.com/flux-life/flux-planner/internal/domain"
)

// Offline is the gateway used when no provider is configured. Every call
// fails, so the planner answers with its fallbacks.
type Offline struct{}

// Converse always fails with ErrUnavailable.
func (Offline) Converse(context.Context, []domain.Message, string) (string, error) {
	return "", fmt.Errorf("%w: %w", ErrProvider, ErrUnavailable)
}

// GenerateStructuredPlan always fails with ErrUnavailable.
func (Offline) GenerateStructuredPlan(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %w", ErrProvider, ErrUnavailable)
}
