package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flux-life/flux-planner/internal/config"
	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}```", want: `{"a":1}`},
		{name: "whitespace", in: "  {\"a\":1}\n", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestOfflineAlwaysFails(t *testing.T) {
	_, err := Offline{}.Converse(context.Background(), nil, "x")
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = Offline{}.GenerateStructuredPlan(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type stubGateway struct {
	reply string
	err   error
}

func (s stubGateway) Converse(context.Context, []domain.Message, string) (string, error) {
	return s.reply, s.err
}

func (s stubGateway) GenerateStructuredPlan(context.Context, string) (string, error) {
	return s.reply, s.err
}

func TestInstrumentedPassesThrough(t *testing.T) {
	gw := WithLogging(stubGateway{reply: "ok"}, "stub", nil)
	reply, err := gw.Converse(context.Background(), nil, "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	boom := errors.New("boom")
	gw = WithLogging(stubGateway{err: boom}, "stub", nil)
	_, err = gw.GenerateStructuredPlan(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestLoadPersona(t *testing.T) {
	persona, err := LoadPersona("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPersona, persona)

	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("persona: |\n  You are a calm coach.\n"), 0o600))
	persona, err = LoadPersona(path)
	require.NoError(t, err)
	assert.Equal(t, "You are a calm coach.", persona)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("other: 1\n"), 0o600))
	_, err = LoadPersona(empty)
	assert.Error(t, err)

	_, err = LoadPersona(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewFallsBackToOfflineWithoutKey(t *testing.T) {
	gw, provider, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOffline, provider)
	assert.IsType(t, Offline{}, gw)

	gw, provider, err = New(context.Background(), config.LLMConfig{Provider: config.ProviderNone, OpenAIAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOffline, provider)
	assert.IsType(t, Offline{}, gw)
}

func TestNewBuildsConfiguredProvider(t *testing.T) {
	gw, provider, err := New(context.Background(), config.LLMConfig{
		Provider:        config.ProviderAnthropic,
		AnthropicModel:  "claude-test",
		AnthropicAPIKey: "sk-ant",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderAnthropic, provider)
	assert.IsType(t, &Instrumented{}, gw)
}

func TestGeminiContentsEndWithUser(t *testing.T) {
	contents := geminiContents([]domain.Message{
		{Role: domain.RoleUser, Content: "hello"},
		{Role: domain.RoleAssistant, Content: "hi!"},
	}, "ask a question")
	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), string(contents[0].Role))
	assert.Equal(t, string(genai.RoleModel), string(contents[1].Role))
	assert.Equal(t, string(genai.RoleUser), string(contents[2].Role))
	require.Len(t, contents[2].Parts, 1)
	assert.Equal(t, InstructionMessage("ask a question"), contents[2].Parts[0].Text)

	contents = geminiContents([]domain.Message{{Role: domain.RoleUser, Content: "hello"}}, "x")
	assert.Len(t, contents, 1)
}
