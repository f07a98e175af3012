package planner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/flux-life/flux-planner/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTripAtEveryState(t *testing.T) {
	for steps := 0; steps <= 5; steps++ {
		gw := newWorkingGateway(t)
		original := newTestAgent(gw)
		walkTo(t, original, steps)

		t.Run(string(original.State), func(t *testing.T) {
			data, err := json.Marshal(original)
			require.NoError(t, err)

			restored, err := Restore(data, gw, quietLogger())
			require.NoError(t, err)

			assert.Equal(t, original.ConversationID, restored.ConversationID)
			assert.Equal(t, original.UserID, restored.UserID)
			assert.Equal(t, original.State, restored.State)
			assert.Equal(t, original.Facts, restored.Facts)
			assert.Len(t, restored.Messages, len(original.Messages))
			assert.Equal(t, original.Messages, restored.Messages)
			assert.Equal(t, original.Plan, restored.Plan)
		})
	}
}

func TestRestoredAgentBehavesLikeOriginal(t *testing.T) {
	gw := newWorkingGateway(t)
	original := newTestAgent(gw)
	walkTo(t, original, 2)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	restored, err := Restore(data, gw, quietLogger())
	require.NoError(t, err)

	ctx := context.Background()
	for _, msg := range []string{"suggest one", "Home workouts", "perfect"} {
		want, err := original.ProcessMessage(ctx, msg)
		require.NoError(t, err)
		got, err := restored.ProcessMessage(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, want, got, msg)
	}
	assert.Equal(t, original.Snapshot(), restored.Snapshot())
	assert.Equal(t, domain.StateConfirmed, restored.State)
}

func TestSnapshotShape(t *testing.T) {
	agent := newTestAgent(newWorkingGateway(t))
	walkTo(t, agent, 1)

	data, err := json.Marshal(agent)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "conv-1", doc["conversation_id"])
	assert.Equal(t, "user-1", doc["user_id"])
	assert.Equal(t, "GATHERING_CURRENT_STATE", doc["state"])
	assert.Equal(t, map[string]any{
		"goal":     "I want to lose weight for a wedding",
		"timeline": "March 15th",
	}, doc["context"])
	assert.Len(t, doc["messages"], 4)
	assert.Nil(t, doc["plan"])
}

func TestSnapshotIsACopy(t *testing.T) {
	agent := newTestAgent(newWorkingGateway(t))
	walkTo(t, agent, 4)

	snap := agent.Snapshot()
	snap.Plan[0].Tasks[0] = "changed"
	snap.Messages[0].Content = "changed"

	assert.NotEqual(t, "changed", agent.Plan[0].Tasks[0])
	assert.NotEqual(t, "changed", agent.Messages[0].Content)
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"conversation_id": "c1",
			"user_id":         "u1",
			"state":           "AWAITING_CONFIRMATION",
			"context": map[string]any{
				"goal": "gym", "timeline": "June", "current_state": "80kg",
				"target": "75kg", "preferences": "gym",
			},
			"messages": []map[string]string{{"role": "user", "content": "gym"}},
			"plan":     FallbackPlan(),
		}
	}
	encode := func(t *testing.T, mutate func(map[string]any)) []byte {
		doc := valid()
		mutate(doc)
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		return data
	}

	_, err := Restore(encode(t, func(map[string]any) {}), nil, nil)
	require.NoError(t, err, "baseline snapshot must restore")

	cases := map[string][]byte{
		"empty":           nil,
		"whitespace":      []byte("  \n"),
		"not json":        []byte("{conversation"),
		"null":            []byte("null"),
		"no conversation": encode(t, func(d map[string]any) { delete(d, "conversation_id") }),
		"no user":         encode(t, func(d map[string]any) { d["user_id"] = "" }),
		"unknown state":   encode(t, func(d map[string]any) { d["state"] = "DANCING" }),
		"missing facts":   encode(t, func(d map[string]any) { delete(d["context"].(map[string]any), "preferences") }),
		"skipped fact": encode(t, func(d map[string]any) {
			d["state"] = "GATHERING_CURRENT_STATE"
			d["context"] = map[string]any{"goal": "gym", "current_state": "80kg"}
		}),
		"unknown fact": encode(t, func(d map[string]any) { d["context"].(map[string]any)["mood"] = "happy" }),
		"fact not string": encode(t, func(d map[string]any) {
			d["context"].(map[string]any)["goal"] = 42
		}),
		"no plan":        encode(t, func(d map[string]any) { d["plan"] = nil }),
		"empty plan":     encode(t, func(d map[string]any) { d["plan"] = []any{} }),
		"bad week":       encode(t, func(d map[string]any) { d["plan"] = []domain.Milestone{{Week: 0, Title: "x", Tasks: []string{"a"}}} }),
		"empty title":    encode(t, func(d map[string]any) { d["plan"] = []domain.Milestone{{Week: 1, Title: " ", Tasks: []string{"a"}}} }),
		"no tasks":       encode(t, func(d map[string]any) { d["plan"] = []domain.Milestone{{Week: 1, Title: "x"}} }),
		"bad role":       encode(t, func(d map[string]any) { d["messages"] = []map[string]string{{"role": "system", "content": "x"}} }),
		"too many facts": encode(t, func(d map[string]any) { d["state"] = "GATHERING_TARGET" }),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			agent, err := Restore(data, nil, nil)
			assert.ErrorIs(t, err, ErrRestoreFailed)
			assert.Nil(t, agent)
		})
	}
}

func TestRestoreAcceptsMinimalIdleSnapshot(t *testing.T) {
	agent, err := Restore([]byte(`{"conversation_id":"c1","user_id":"u1","state":"IDLE"}`), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, agent.State)
	assert.Zero(t, agent.Facts.Len())
	assert.Empty(t, agent.Messages)
	assert.Nil(t, agent.Plan)
}
