package explicit

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zeu5/avgrl-bench/types"
)

// ProbabilityTolerance is the allowed deviation from 1 of the
// probabilities of a single choice
const ProbabilityTolerance = 1e-6

// InitLabel marks the initial states in the label file
const InitLabel = "init"

// Branch is one probabilistic outcome of a choice. Reward is the total
// reward collected when the transition is taken: state, choice and
// transition rewards added together.
type Branch struct {
	Dest   types.State
	Prob   float64
	Reward float64
}

// Choice is an action enabled in a state with its outcome distribution
type Choice struct {
	Action   types.Action
	Branches []Branch
}

func (c Choice) copy() Choice {
	branches := make([]Branch, len(c.Branches))
	copy(branches, c.Branches)
	return Choice{Action: c.Action, Branches: branches}
}

// MDP parsed from the explicit format. It is never mutated after
// construction, accessors hand out copies.
type MDP struct {
	name     string
	states   []types.State
	choices  map[types.State][]Choice
	labels   map[types.State][]string
	declared []string
	initial  []types.State
}

func (m *MDP) Name() string {
	return m.name
}

// States sorted by id
func (m *MDP) States() []types.State {
	states := make([]types.State, len(m.states))
	copy(states, m.states)
	return states
}

func (m *MDP) HasState(s types.State) bool {
	_, ok := m.choices[s]
	return ok
}

// Actions enabled in the state, sorted
func (m *MDP) Actions(s types.State) []types.Action {
	choices := m.choices[s]
	actions := make([]types.Action, len(choices))
	for i, c := range choices {
		actions[i] = c.Action
	}
	return actions
}

func (m *MDP) Enabled(s types.State, a types.Action) bool {
	_, ok := m.Choice(s, a)
	return ok
}

func (m *MDP) Choice(s types.State, a types.Action) (Choice, bool) {
	choices := m.choices[s]
	i := sort.Search(len(choices), func(i int) bool { return choices[i].Action >= a })
	if i < len(choices) && choices[i].Action == a {
		return choices[i].copy(), true
	}
	return Choice{}, false
}

// Labels attached to the state
func (m *MDP) Labels(s types.State) []string {
	labels := make([]string, len(m.labels[s]))
	copy(labels, m.labels[s])
	return labels
}

// DeclaredLabels in the order of the label file declaration
func (m *MDP) DeclaredLabels() []string {
	declared := make([]string, len(m.declared))
	copy(declared, m.declared)
	return declared
}

// Initial states, sorted. Contains at least one state.
func (m *MDP) Initial() []types.State {
	initial := make([]types.State, len(m.initial))
	copy(initial, m.initial)
	return initial
}

func (m *MDP) NumChoices() int {
	count := 0
	for _, choices := range m.choices {
		count += len(choices)
	}
	return count
}

func (m *MDP) NumTransitions() int {
	count := 0
	for _, choices := range m.choices {
		for _, c := range choices {
			count += len(c.Branches)
		}
	}
	return count
}

// DefaultReference is the pair RVI Q-learning subtracts when none is configured:
// the first initial state and its smallest action
func (m *MDP) DefaultReference() (types.State, types.Action) {
	s := m.initial[0]
	return s, m.choices[s][0].Action
}

// Printable summary of the model
func (m *MDP) Printable() string {
	initial := make([]string, len(m.initial))
	for i, s := range m.initial {
		initial[i] = fmt.Sprintf("%d", s)
	}
	return fmt.Sprintf("MDP: %s\nStates: %d\nChoices: %d\nTransitions: %d\nInitial: [%s]\nLabels: [%s]",
		m.name, len(m.states), m.NumChoices(), m.NumTransitions(), strings.Join(initial, ", "), strings.Join(m.declared, ", "))
}

// validate checks the structural invariants and fixes the ordering of
// states, choices and branches. file is used in the reported errors.
func (m *MDP) validate(file string) error {
	if len(m.choices) == 0 {
		return formatErrorf(file, 0, "no transitions")
	}
	m.states = make([]types.State, 0, len(m.choices))
	for s, choices := range m.choices {
		m.states = append(m.states, s)
		sort.Slice(choices, func(i, j int) bool { return choices[i].Action < choices[j].Action })
		for i := range choices {
			branches := choices[i].Branches
			sort.Slice(branches, func(i, j int) bool { return branches[i].Dest < branches[j].Dest })
		}
	}
	sort.Slice(m.states, func(i, j int) bool { return m.states[i] < m.states[j] })

	for _, s := range m.states {
		for _, c := range m.choices[s] {
			sum := 0.0
			for _, b := range c.Branches {
				if _, ok := m.choices[b.Dest]; !ok {
					return formatErrorf(file, 0, "state %d action %d leads to undeclared state %d", s, c.Action, b.Dest)
				}
				sum += b.Prob
			}
			if !(math.Abs(sum-1) <= ProbabilityTolerance) {
				return formatErrorf(file, 0, "probabilities of state %d action %d sum to %v", s, c.Action, sum)
			}
		}
	}

	for s := range m.labels {
		if _, ok := m.choices[s]; !ok {
			return formatErrorf(file, 0, "label for undeclared state %d", s)
		}
	}
	if len(m.initial) == 0 {
		for _, s := range m.states {
			for _, l := range m.labels[s] {
				if l == InitLabel {
					m.initial = append(m.initial, s)
					break
				}
			}
		}
		if len(m.initial) == 0 {
			m.initial = []types.State{m.states[0]}
		}
	}
	return nil
}
