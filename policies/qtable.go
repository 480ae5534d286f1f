package policies

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/zeu5/avgrl-bench/types"
)

// QTable stores the value estimate and the visit count of every
// (state, action) pair. Entries of a state are created on first access
// with the default value.
type QTable struct {
	def     float64
	actions map[types.State][]types.Action
	values  map[types.State][]float64
	visits  map[types.State][]int
}

func NewQTable(def float64) *QTable {
	return &QTable{
		def:     def,
		actions: make(map[types.State][]types.Action),
		values:  make(map[types.State][]float64),
		visits:  make(map[types.State][]int),
	}
}

// row returns the values of the state, creating them for the given actions if needed
func (q *QTable) row(state types.State, actions []types.Action) []float64 {
	if values, ok := q.values[state]; ok {
		return values
	}
	values := make([]float64, len(actions))
	for i := range values {
		values[i] = q.def
	}
	q.actions[state] = actions
	q.values[state] = values
	q.visits[state] = make([]int, len(actions))
	return values
}

func (q *QTable) index(state types.State, action types.Action) int {
	for i, a := range q.actions[state] {
		if a == action {
			return i
		}
	}
	return -1
}

func (q *QTable) HasState(state types.State) bool {
	_, ok := q.values[state]
	return ok
}

// Get the value of the pair, the default for unseen pairs
func (q *QTable) Get(state types.State, action types.Action) float64 {
	i := q.index(state, action)
	if i < 0 {
		return q.def
	}
	return q.values[state][i]
}

// Set the value of an action, the state must have been initialized with Max, MaxAmong or Visit
func (q *QTable) Set(state types.State, action types.Action, val float64) {
	if i := q.index(state, action); i >= 0 {
		q.values[state][i] = val
	}
}

// Visit increments and returns the visit count of the pair
func (q *QTable) Visit(state types.State, actions []types.Action, action types.Action) int {
	q.row(state, actions)
	i := q.index(state, action)
	if i < 0 {
		return 0
	}
	q.visits[state][i]++
	return q.visits[state][i]
}

func (q *QTable) Visits(state types.State, action types.Action) int {
	i := q.index(state, action)
	if i < 0 {
		return 0
	}
	return q.visits[state][i]
}

// Max value among the actions of the state
func (q *QTable) Max(state types.State, actions []types.Action) float64 {
	values := q.row(state, actions)
	if len(values) == 0 {
		return q.def
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// MaxAmong returns the indices of the actions attaining the maximum and the maximum
func (q *QTable) MaxAmong(state types.State, actions []types.Action) ([]int, float64) {
	values := q.row(state, actions)
	best := make([]int, 0, 1)
	max := q.def
	for i, v := range values {
		if len(best) == 0 || v > max {
			best = append(best[:0], i)
			max = v
		} else if v == max {
			best = append(best, i)
		}
	}
	return best, max
}

type qEntry struct {
	State  types.State  `json:"state"`
	Action types.Action `json:"action"`
	Value  float64      `json:"value"`
	Visits int          `json:"visits"`
}

// Record writes the table as JSON to path
func (q *QTable) Record(path string) error {
	states := make([]types.State, 0, len(q.values))
	for s := range q.values {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	entries := make([]qEntry, 0)
	for _, s := range states {
		for i, a := range q.actions[s] {
			entries = append(entries, qEntry{State: s, Action: a, Value: q.values[s][i], Visits: q.visits[s][i]})
		}
	}
	bs, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0644)
}
