package explicit

import (
	"fmt"

	"github.com/zeu5/avgrl-bench/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// choiceSampler draws successors of a single choice. The weighted
// sampler removes the drawn item, so its weight is restored after each draw.
type choiceSampler struct {
	branches []Branch
	weights  []float64
	sampler  sampleuv.Weighted
}

func (c *choiceSampler) sample() (Branch, bool) {
	if len(c.branches) == 1 {
		return c.branches[0], true
	}
	i, ok := c.sampler.Take()
	if !ok {
		return Branch{}, false
	}
	c.sampler.Reweight(i, c.weights[i])
	return c.branches[i], true
}

// Environment simulates an explicit MDP with its own seeded random source
type Environment struct {
	mdp      *MDP
	samplers map[types.State]map[types.Action]*choiceSampler
	actions  map[types.State][]types.Action
}

var _ types.Environment = &Environment{}

func NewEnvironment(m *MDP, seed uint64) *Environment {
	src := rand.NewSource(seed)
	e := &Environment{
		mdp:      m,
		samplers: make(map[types.State]map[types.Action]*choiceSampler, len(m.states)),
		actions:  make(map[types.State][]types.Action, len(m.states)),
	}
	for _, s := range m.states {
		e.actions[s] = m.Actions(s)
		e.samplers[s] = make(map[types.Action]*choiceSampler, len(m.choices[s]))
		for _, c := range m.choices[s] {
			weights := make([]float64, len(c.Branches))
			for i, b := range c.Branches {
				weights[i] = b.Prob
			}
			initial := make([]float64, len(weights))
			copy(initial, weights)
			e.samplers[s][c.Action] = &choiceSampler{
				branches: c.Branches,
				weights:  weights,
				sampler:  sampleuv.NewWeighted(initial, src),
			}
		}
	}
	return e
}

// EnvironmentCtor returns a constructor creating a fresh environment per seed
func EnvironmentCtor(m *MDP) types.EnvironmentCtor {
	return func(seed uint64) types.Environment {
		return NewEnvironment(m, seed)
	}
}

// Reset returns the smallest initial state. The label format declares
// no initial distribution, so several init states do not add randomness.
func (e *Environment) Reset() (types.State, error) {
	return e.mdp.initial[0], nil
}

func (e *Environment) Step(state types.State, action types.Action) (types.State, float64, error) {
	choices, ok := e.samplers[state]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownState, state)
	}
	sampler, ok := choices[action]
	if !ok {
		return 0, 0, fmt.Errorf("%w: action %d in state %d", ErrActionDisabled, action, state)
	}
	branch, ok := sampler.sample()
	if !ok {
		return 0, 0, fmt.Errorf("no successor for action %d in state %d", action, state)
	}
	return branch.Dest, branch.Reward, nil
}

// Actions enabled in the state. The slice is shared, callers must not modify it.
func (e *Environment) Actions(state types.State) []types.Action {
	return e.actions[state]
}
