package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flux-life/flux-planner/internal/config"
)

// ProviderOffline names the gateway returned when no provider can be used.
const ProviderOffline = "offline"

// New builds the gateway selected by cfg. A selected provider without an API
// key yields the offline gateway rather than an error, so the service still
// runs on fallbacks. It returns the name of the provider actually in use.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Gateway, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	persona, err := LoadPersona(cfg.PersonaFile)
	if err != nil {
		return nil, "", err
	}

	if cfg.Provider == config.ProviderNone {
		logger.Info("LLM provider disabled, replies will use fallbacks")
		return Offline{}, ProviderOffline, nil
	}
	if cfg.APIKey() == "" {
		logger.Warn("No API key for LLM provider, replies will use fallbacks", "provider", cfg.Provider)
		return Offline{}, ProviderOffline, nil
	}

	opts := Options{
		Persona: persona,
		Timeout: cfg.Timeout,
	}

	var gw Gateway
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts.Model = cfg.OpenAIModel
		opts.BaseURL = cfg.OpenAIBaseURL
		gw = NewOpenAIClient(cfg.OpenAIAPIKey, opts)
	case config.ProviderAnthropic:
		opts.Model = cfg.AnthropicModel
		gw = NewAnthropicClient(cfg.AnthropicAPIKey, opts)
	case config.ProviderGemini:
		opts.Model = cfg.GeminiModel
		gc, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, opts)
		if err != nil {
			return nil, "", err
		}
		gw = gc
	default:
		return nil, "", fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}

	logger.Info("LLM provider configured", "provider", cfg.Provider, "model", opts.Model)
	return WithLogging(gw, cfg.Provider, logger), cfg.Provider, nil
}
