package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %q", cfg.Port)
	}
	if cfg.LLM.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %q", cfg.LLM.OpenAIModel)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected cache ttl 1h, got %s", cfg.Cache.TTL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected two default CORS origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "https://flux.app, ,https://admin.flux.app")
	t.Setenv("SECURE_COOKIES", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.LLM.Provider != ProviderAnthropic {
		t.Errorf("expected provider anthropic, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey() != "sk-ant" {
		t.Errorf("expected anthropic key, got %q", cfg.LLM.APIKey())
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.LLM.Timeout)
	}
	if !cfg.SecureCookies {
		t.Error("expected secure cookies")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.flux.app" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "llama")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("AGENT_CACHE_TTL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected fallback ttl, got %s", cfg.Cache.TTL)
	}
}
