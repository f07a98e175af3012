package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fact names one piece of information gathered during a conversation.
// Facts are filled strictly in declaration order.
type Fact int

const (
	FactGoal Fact = iota
	FactTimeline
	FactCurrentState
	FactTarget
	FactPreferences

	factCount
)

var factNames = [factCount]string{"goal", "timeline", "current_state", "target", "preferences"}

func (f Fact) String() string {
	if f < 0 || f >= factCount {
		return fmt.Sprintf("fact(%d)", int(f))
	}
	return factNames[f]
}

// Facts is the forward-only record of what the user has told the agent.
// The zero value holds no facts.
type Facts struct {
	values [factCount]string
	filled int
}

// Len reports how many facts have been recorded.
func (f Facts) Len() int { return f.filled }

// Get returns a fact and whether it has been recorded.
func (f Facts) Get(fact Fact) (string, bool) {
	if fact < 0 || int(fact) >= f.filled {
		return "", false
	}
	return f.values[fact], true
}

// Goal returns the goal statement, or "" if it is not recorded yet.
func (f Facts) Goal() string { v, _ := f.Get(FactGoal); return v }

// Timeline returns the timeline, or "".
func (f Facts) Timeline() string { v, _ := f.Get(FactTimeline); return v }

// CurrentState returns the current state, or "".
func (f Facts) CurrentState() string { v, _ := f.Get(FactCurrentState); return v }

// Target returns the target, or "".
func (f Facts) Target() string { v, _ := f.Get(FactTarget); return v }

// Preferences returns the preferences, or "".
func (f Facts) Preferences() string { v, _ := f.Get(FactPreferences); return v }

// record writes the next fact. Any fact other than the next unfilled one is
// rejected, so a fact is never overwritten and never skipped.
func (f *Facts) record(fact Fact, value string) error {
	if int(fact) != f.filled {
		return fmt.Errorf("%w: cannot record %s with %d facts recorded", ErrFactOrder, fact, f.filled)
	}
	f.values[fact] = value
	f.filled++
	return nil
}

func (f Facts) require(fact Fact) (string, error) {
	v, ok := f.Get(fact)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingFact, fact)
	}
	return v, nil
}

// factsJSON keeps the wire shape of the persisted context object.
type factsJSON struct {
	Goal         *string `json:"goal,omitempty"`
	Timeline     *string `json:"timeline,omitempty"`
	CurrentState *string `json:"current_state,omitempty"`
	Target       *string `json:"target,omitempty"`
	Preferences  *string `json:"preferences,omitempty"`
}

func (j *factsJSON) fields() [factCount]**string {
	return [factCount]**string{&j.Goal, &j.Timeline, &j.CurrentState, &j.Target, &j.Preferences}
}

// MarshalJSON encodes the recorded facts as an object keyed by fact name.
func (f Facts) MarshalJSON() ([]byte, error) {
	var out factsJSON
	fields := out.fields()
	for i := 0; i < f.filled; i++ {
		v := f.values[i]
		*fields[i] = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a context object, rejecting unknown keys and facts
// recorded out of order.
func (f *Facts) UnmarshalJSON(data []byte) error {
	*f = Facts{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var in factsJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}

	for i, field := range in.fields() {
		if *field == nil {
			continue
		}
		if err := f.record(Fact(i), **field); err != nil {
			return err
		}
	}
	return nil
}
