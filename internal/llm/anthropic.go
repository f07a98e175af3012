package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flux-life/flux-planner/internal/domain"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	opts   Options
}

// NewAnthropicClient creates a client with SDK retries disabled.
func NewAnthropicClient(apiKey string, opts Options) *AnthropicClient {
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		opts:   opts,
	}
}

// Converse puts persona and instruction in the system prompt; the Messages
// API has no mid-conversation system role.
func (c *AnthropicClient) Converse(ctx context.Context, transcript []domain.Message, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		MaxTokens:   c.opts.ReplyMaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: c.opts.Persona},
			{Text: InstructionMessage(instruction)},
		},
		Messages: anthropicTurns(transcript, instruction),
	})
	if err != nil {
		return "", fmt.Errorf("%w: anthropic message: %w", ErrProvider, err)
	}
	return anthropicText(message)
}

// GenerateStructuredPlan sends the prompt as a single user turn. Anthropic has
// no JSON response mode, so a surrounding code fence is stripped.
func (c *AnthropicClient) GenerateStructuredPlan(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		MaxTokens:   c.opts.PlanMaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: anthropic plan message: %w", ErrProvider, err)
	}
	text, err := anthropicText(message)
	if err != nil {
		return "", err
	}
	return stripCodeFence(text), nil
}

// anthropicTurns converts the transcript into alternating user/assistant
// turns that start and end with the user, as the Messages API requires.
func anthropicTurns(transcript []domain.Message, instruction string) []anthropic.MessageParam {
	type turn struct {
		role string
		text string
	}
	var turns []turn
	for _, m := range transcript {
		role := domain.RoleUser
		if m.Role == domain.RoleAssistant {
			role = domain.RoleAssistant
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].text += "\n\n" + m.Content
			continue
		}
		turns = append(turns, turn{role: role, text: m.Content})
	}

	marker := InstructionMessage(instruction)
	if len(turns) == 0 || turns[0].role != domain.RoleUser {
		turns = append([]turn{{role: domain.RoleUser, text: marker}}, turns...)
	}
	if turns[len(turns)-1].role != domain.RoleUser {
		turns = append(turns, turn{role: domain.RoleUser, text: marker})
	}

	params := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.text)
		if t.role == domain.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return params
}

func anthropicText(message *anthropic.Message) (string, error) {
	if message == nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, ErrEmptyResponse)
	}
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrProvider, ErrEmptyResponse)
	}
	return text, nil
}
