// Package llm is the boundary to generative text providers.
//
// A Gateway produces conversational replies and raw structured-plan text.
// It never substitutes fallbacks: every failure is returned to the caller
// wrapped in ErrProvider.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/flux-life/flux-planner/internal/domain"
)

var (
	// ErrProvider wraps every failure to obtain a completion.
	ErrProvider = errors.New("completion provider error")
	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("empty completion")
	// ErrUnavailable is returned by the offline gateway.
	ErrUnavailable = errors.New("no language model configured")
)

// Gateway defines the two completion calls used by the planner.
type Gateway interface {
	// Converse returns the next reply given the running transcript and a
	// one-off instruction that is not user speech.
	Converse(ctx context.Context, transcript []domain.Message, instruction string) (string, error)

	// GenerateStructuredPlan returns raw text expected to be a JSON object.
	GenerateStructuredPlan(ctx context.Context, prompt string) (string, error)
}

// Ensure all providers implement Gateway.
var (
	_ Gateway = (*OpenAIClient)(nil)
	_ Gateway = (*AnthropicClient)(nil)
	_ Gateway = (*GeminiClient)(nil)
	_ Gateway = Offline{}
	_ Gateway = (*Instrumented)(nil)
)

// Options are the sampling and budget parameters shared by all providers.
type Options struct {
	Model          string
	Persona        string
	Temperature    float64
	ReplyMaxTokens int64
	PlanMaxTokens  int64
	Timeout        time.Duration
	BaseURL        string
}

// Default completion parameters.
const (
	DefaultTemperature    = 0.7
	DefaultReplyMaxTokens = 300
	DefaultPlanMaxTokens  = 1500
	DefaultTimeout        = 30 * time.Second
)

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Persona:        DefaultPersona,
		Temperature:    DefaultTemperature,
		ReplyMaxTokens: DefaultReplyMaxTokens,
		PlanMaxTokens:  DefaultPlanMaxTokens,
		Timeout:        DefaultTimeout,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Persona == "" {
		o.Persona = d.Persona
	}
	if o.Temperature == 0 {
		o.Temperature = d.Temperature
	}
	if o.ReplyMaxTokens == 0 {
		o.ReplyMaxTokens = d.ReplyMaxTokens
	}
	if o.PlanMaxTokens == 0 {
		o.PlanMaxTokens = d.PlanMaxTokens
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	return o
}

const instructionMarker = "[AGENT INSTRUCTION - not from user]: "

// InstructionMessage marks an instruction so the model does not read it as
// something the user said.
func InstructionMessage(instruction string) string {
	return instructionMarker + instruction
}

// stripCodeFence removes a surrounding markdown code fence, which providers
// without a JSON response mode tend to add.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
