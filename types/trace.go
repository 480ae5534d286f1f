package types

import (
	"encoding/json"
	"errors"
)

// Trace of a repetition as (state, action, reward, nextState) steps
type Trace struct {
	states     []State
	actions    []Action
	rewards    []float64
	nextStates []State
}

func NewTrace() *Trace {
	return &Trace{
		states:     make([]State, 0),
		actions:    make([]Action, 0),
		rewards:    make([]float64, 0),
		nextStates: make([]State, 0),
	}
}

func (t *Trace) Append(state State, action Action, reward float64, nextState State) {
	t.states = append(t.states, state)
	t.actions = append(t.actions, action)
	t.rewards = append(t.rewards, reward)
	t.nextStates = append(t.nextStates, nextState)
}

func (t *Trace) Len() int {
	return len(t.states)
}

func (t *Trace) Get(i int) (State, Action, float64, State, bool) {
	if i < 0 || i >= len(t.states) {
		return 0, 0, 0, 0, false
	}
	return t.states[i], t.actions[i], t.rewards[i], t.nextStates[i], true
}

// Eq reports whether both traces visit the same states, take the same actions
// and observe bit-identical rewards
func (t *Trace) Eq(other *Trace) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i := 0; i < t.Len(); i++ {
		if t.states[i] != other.states[i] || t.actions[i] != other.actions[i] ||
			t.nextStates[i] != other.nextStates[i] || t.rewards[i] != other.rewards[i] {
			return false
		}
	}
	return true
}

// AverageReward observed along the trace
func (t *Trace) AverageReward() float64 {
	if len(t.rewards) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range t.rewards {
		sum += r
	}
	return sum / float64(len(t.rewards))
}

type traceStep struct {
	State     State   `json:"state"`
	Action    Action  `json:"action"`
	Reward    float64 `json:"reward"`
	NextState State   `json:"next_state"`
}

func (t *Trace) MarshalJSON() ([]byte, error) {
	steps := make([]traceStep, t.Len())
	for i := range steps {
		steps[i] = traceStep{t.states[i], t.actions[i], t.rewards[i], t.nextStates[i]}
	}
	return json.Marshal(steps)
}

func (t *Trace) UnmarshalJSON(bs []byte) error {
	steps := make([]traceStep, 0)
	if err := json.Unmarshal(bs, &steps); err != nil {
		return err
	}
	if t == nil {
		return errors.New("unmarshal into nil trace")
	}
	*t = *NewTrace()
	for _, s := range steps {
		t.Append(s.State, s.Action, s.Reward, s.NextState)
	}
	return nil
}
