package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int64             `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, status int, reply string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			require.NoError(t, json.Unmarshal(body, captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIConverseSendsInstructionAsSystemMessage(t *testing.T) {
	var got capturedRequest
	srv := newOpenAIServer(t, http.StatusOK, "  When is the wedding? 💪  ", &got)
	client := NewOpenAIClient("sk-test", Options{BaseURL: srv.URL + "/"})

	transcript := []domain.Message{
		{Role: domain.RoleUser, Content: "I want to lose weight"},
		{Role: domain.RoleAssistant, Content: "Great goal!"},
		{Role: domain.RoleUser, Content: "March 15th"},
	}
	reply, err := client.Converse(context.Background(), transcript, "Ask about current weight.")
	require.NoError(t, err)
	assert.Equal(t, "When is the wedding? 💪", reply)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.EqualValues(t, 300, got.MaxTokens)
	assert.Empty(t, got.ResponseFormat)
	require.Len(t, got.Messages, 5)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "system", got.Messages[4].Role)
	assert.Equal(t, InstructionMessage("Ask about current weight."), got.Messages[4].Content)
}

func TestOpenAIStructuredPlanRequestsJSONObject(t *testing.T) {
	var got capturedRequest
	srv := newOpenAIServer(t, http.StatusOK, `{"plan":[]}`, &got)
	client := NewOpenAIClient("sk-test", Options{BaseURL: srv.URL + "/", Model: "gpt-test"})

	raw, err := client.GenerateStructuredPlan(context.Background(), "make a plan")
	require.NoError(t, err)
	assert.Equal(t, `{"plan":[]}`, raw)

	assert.Equal(t, "gpt-test", got.Model)
	assert.EqualValues(t, 1500, got.MaxTokens)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAIFailuresWrapProviderError(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusInternalServerError, "", nil)
	client := NewOpenAIClient("sk-test", Options{BaseURL: srv.URL + "/"})

	_, err := client.Converse(context.Background(), nil, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestOpenAIEmptyReplyIsAnError(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK, "   ", nil)
	client := NewOpenAIClient("sk-test", Options{BaseURL: srv.URL + "/"})

	_, err := client.Converse(context.Background(), nil, "hello")
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
