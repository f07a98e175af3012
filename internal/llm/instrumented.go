package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/flux-life/flux-planner/internal/domain"
)

// Instrumented logs latency and failures of another gateway.
type Instrumented struct {
	next     Gateway
	provider string
	logger   *slog.Logger
}

// WithLogging wraps next so every call is logged under provider.
func WithLogging(next Gateway, provider string, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{next: next, provider: provider, logger: logger}
}

// Converse implements Gateway.
func (i *Instrumented) Converse(ctx context.Context, transcript []domain.Message, instruction string) (string, error) {
	start := time.Now()
	text, err := i.next.Converse(ctx, transcript, instruction)
	i.record("converse", start, len(text), err)
	return text, err
}

// GenerateStructuredPlan implements Gateway.
func (i *Instrumented) GenerateStructuredPlan(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := i.next.GenerateStructuredPlan(ctx, prompt)
	i.record("structured_plan", start, len(text), err)
	return text, err
}

func (i *Instrumented) record(call string, start time.Time, size int, err error) {
	elapsed := time.Since(start)
	if err != nil {
		i.logger.Warn("Completion failed",
			"provider", i.provider,
			"call", call,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return
	}
	i.logger.Debug("Completion succeeded",
		"provider", i.provider,
		"call", call,
		"duration_ms", elapsed.Milliseconds(),
		"response_length", size,
	)
}
