package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/flux-life/flux-planner/internal/llm"
	"github.com/flux-life/flux-planner/internal/planner"
)

func init() {
	color.NoColor = true
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionRunsToConfirmation(t *testing.T) {
	s, err := openSession("", "local", llm.Offline{}, quietLogger())
	require.NoError(t, err)

	input := strings.Join([]string{
		"I want to lose weight for my wedding",
		"",
		"June",
		"80kg",
		"suggest something",
		"home workouts",
		"looks good",
	}, "\n")
	var out bytes.Buffer
	require.NoError(t, s.run(context.Background(), strings.NewReader(input), &out, llm.ProviderOffline))

	assert.Equal(t, domain.StateConfirmed, s.agent.State)
	text := out.String()
	assert.Contains(t, text, "provider: offline")
	assert.Contains(t, text, "Week 6:")
	assert.Contains(t, text, "try: "+planner.LooksGoodAction)
	assert.Contains(t, text, "plan confirmed")
}

func TestSessionQuitStopsReading(t *testing.T) {
	s, err := openSession("", "local", llm.Offline{}, quietLogger())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, s.run(context.Background(), strings.NewReader("gym\n/quit\nnext week\n"), &out, llm.ProviderOffline))

	assert.Equal(t, domain.StateGatheringTimeline, s.agent.State)
	assert.Len(t, s.agent.Messages, 2)
}

func TestSessionResumeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.json")

	first, err := openSession(path, "local", llm.Offline{}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, first.run(context.Background(), strings.NewReader("fitness\nin two months\n"), io.Discard, llm.ProviderOffline))

	_, err = os.Stat(path)
	require.NoError(t, err)

	second, err := openSession(path, "someone-else", llm.Offline{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, first.agent.ConversationID, second.agent.ConversationID)
	assert.Equal(t, "local", second.agent.UserID)
	assert.Equal(t, domain.StateGatheringCurrentState, second.agent.State)

	var out bytes.Buffer
	require.NoError(t, second.run(context.Background(), strings.NewReader("75kg\n"), &out, llm.ProviderOffline))
	assert.Contains(t, out.String(), "Resuming at GATHERING_CURRENT_STATE")
	assert.Equal(t, domain.StateGatheringTarget, second.agent.State)
}

func TestSessionRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := openSession(path, "local", llm.Offline{}, quietLogger())
	assert.ErrorIs(t, err, planner.ErrRestoreFailed)
}
