package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/flux-life/flux-planner/internal/domain"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient talks to the Gemini API.
type GeminiClient struct {
	client *genai.Client
	opts   Options
}

// NewGeminiClient creates a client for the Gemini developer API.
func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, opts: opts}, nil
}

// Converse sends the transcript with persona and instruction as the system
// instruction.
func (c *GeminiClient) Converse(ctx context.Context, transcript []domain.Message, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	system := c.opts.Persona + "\n\n" + InstructionMessage(instruction)
	resp, err := c.client.Models.GenerateContent(ctx, c.opts.Model, geminiContents(transcript, instruction), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(c.opts.Temperature)),
		MaxOutputTokens:   int32(c.opts.ReplyMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %w", ErrProvider, err)
	}
	return geminiText(resp)
}

// GenerateStructuredPlan requests an application/json response.
func (c *GeminiClient) GenerateStructuredPlan(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.opts.Model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(c.opts.Temperature)),
		MaxOutputTokens:  int32(c.opts.PlanMaxTokens),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini plan generate: %w", ErrProvider, err)
	}
	text, err := geminiText(resp)
	if err != nil {
		return "", err
	}
	return stripCodeFence(text), nil
}

func geminiContents(transcript []domain.Message, instruction string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript)+1)
	endsWithUser := false
	for _, m := range transcript {
		var role genai.Role = genai.RoleUser
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
		endsWithUser = role == genai.RoleUser
	}
	if !endsWithUser {
		contents = append(contents, genai.NewContentFromText(InstructionMessage(instruction), genai.RoleUser))
	}
	return contents
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, ErrEmptyResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrProvider, ErrEmptyResponse)
	}
	return text, nil
}
