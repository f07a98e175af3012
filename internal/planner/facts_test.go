package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactsFillForwardOnly(t *testing.T) {
	var f Facts
	require.NoError(t, f.record(FactGoal, "gym"))

	assert.ErrorIs(t, f.record(FactGoal, "again"), ErrFactOrder)
	assert.ErrorIs(t, f.record(FactTarget, "75kg"), ErrFactOrder)

	require.NoError(t, f.record(FactTimeline, "June"))
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, "gym", f.Goal())
	assert.Equal(t, "June", f.Timeline())

	_, ok := f.Get(FactCurrentState)
	assert.False(t, ok)
	_, err := f.require(FactCurrentState)
	assert.ErrorIs(t, err, ErrMissingFact)
}

func TestFactsKeepEmptyValues(t *testing.T) {
	var f Facts
	require.NoError(t, f.record(FactGoal, ""))

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"goal":""}`, string(data))

	var back Facts
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)
}

func TestFactsJSONRejectsGaps(t *testing.T) {
	var f Facts
	err := json.Unmarshal([]byte(`{"goal":"gym","target":"75kg"}`), &f)
	assert.ErrorIs(t, err, ErrFactOrder)
}

func TestFactsJSONNull(t *testing.T) {
	f := Facts{}
	require.NoError(t, f.record(FactGoal, "gym"))
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.Zero(t, f.Len())
}

func TestFactString(t *testing.T) {
	assert.Equal(t, "current_state", FactCurrentState.String())
	assert.Equal(t, "fact(9)", Fact(9).String())
}
