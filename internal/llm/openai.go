package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient talks to the OpenAI chat completions API, or any server that
// speaks it when Options.BaseURL is set.
type OpenAIClient struct {
	client openai.Client
	opts   Options
}

// NewOpenAIClient creates a client. SDK retries are disabled: a failed call
// is reported once and the planner falls back.
func NewOpenAIClient(apiKey string, opts Options) *OpenAIClient {
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4oMini
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		opts:   opts,
	}
}

// Converse sends persona, transcript and a system-role instruction.
func (c *OpenAIClient) Converse(ctx context.Context, transcript []domain.Message, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript)+2)
	messages = append(messages, openai.SystemMessage(c.opts.Persona))
	for _, m := range transcript {
		if m.Role == domain.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.SystemMessage(InstructionMessage(instruction)))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: openai.Float(c.opts.Temperature),
		MaxTokens:   openai.Int(c.opts.ReplyMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat completion: %w", ErrProvider, err)
	}
	return firstChoiceText(resp)
}

// GenerateStructuredPlan asks for a single JSON object.
func (c *OpenAIClient) GenerateStructuredPlan(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.opts.Model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.opts.Temperature),
		MaxTokens:   openai.Int(c.opts.PlanMaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai plan completion: %w", ErrProvider, err)
	}
	return firstChoiceText(resp)
}

func firstChoiceText(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", ErrProvider, ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrProvider, ErrEmptyResponse)
	}
	return text, nil
}
