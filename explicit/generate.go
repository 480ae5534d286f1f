package explicit

import (
	"fmt"
	"math"

	"github.com/zeu5/avgrl-bench/types"
	"golang.org/x/exp/rand"
)

// RandomConfig parametrizes a synthetic MDP
type RandomConfig struct {
	Name      string
	States    int
	Actions   int // maximum number of actions per state
	Branches  int // maximum number of successors per action
	MaxReward float64
	Seed      uint64
}

// Random builds a synthetic MDP: every state enables between 1 and Actions actions, each leading to up to Branches
// distinct successors. State 0 is initial, a fraction of states is
// labelled goal.
func Random(config RandomConfig) (*MDP, error) {
	if config.States <= 0 || config.Actions <= 0 || config.Branches <= 0 {
		return nil, fmt.Errorf("states, actions and branches must be positive")
	}
	if config.Name == "" {
		config.Name = "random"
	}
	rnd := rand.New(rand.NewSource(config.Seed))

	m := &MDP{
		name:     config.Name,
		choices:  make(map[types.State][]Choice),
		labels:   make(map[types.State][]string),
		declared: []string{InitLabel, "goal"},
	}
	branches := config.Branches
	if branches > config.States {
		branches = config.States
	}

	for s := 0; s < config.States; s++ {
		state := types.State(s)
		numActions := 1 + rnd.Intn(config.Actions)
		choices := make([]Choice, numActions)
		for a := 0; a < numActions; a++ {
			numBranches := 1 + rnd.Intn(branches)
			dests := rnd.Perm(config.States)[:numBranches]

			weights := make([]float64, numBranches)
			total := 0.0
			for i := range weights {
				weights[i] = 0.05 + rnd.Float64()
				total += weights[i]
			}
			choice := Choice{Action: types.Action(a), Branches: make([]Branch, numBranches)}
			remaining := 1.0
			for i, d := range dests {
				prob := weights[i] / total
				if i == numBranches-1 {
					prob = remaining
				}
				remaining -= prob
				choice.Branches[i] = Branch{
					Dest:   types.State(d),
					Prob:   prob,
					Reward: math.Round(rnd.Float64()*config.MaxReward*100) / 100,
				}
			}
			choices[a] = choice
		}
		m.choices[state] = choices
		if s == 0 {
			m.labels[state] = append(m.labels[state], InitLabel)
		}
		if rnd.Float64() < 0.2 {
			m.labels[state] = append(m.labels[state], "goal")
		}
	}

	if err := m.validate(config.Name); err != nil {
		return nil, err
	}
	return m, nil
}
