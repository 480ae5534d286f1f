package policies

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeu5/avgrl-bench/types"
	"golang.org/x/exp/rand"
)

var (
	ErrDiverged         = errors.New("value estimates diverged")
	ErrInvalidSchedule  = errors.New("invalid schedule")
	ErrInvalidConfig    = errors.New("invalid learner configuration")
	ErrNoEnabledActions = errors.New("no enabled actions")
)

// Algorithm selects the update rule of the Learner
type Algorithm string

const (
	// AlgorithmDiffQL is Differential Q-learning, the gain is a separately tracked scalar
	AlgorithmDiffQL Algorithm = "diffql"
	// AlgorithmRVIQL is Relative Value Iteration Q-learning, the gain is the value of a reference pair
	AlgorithmRVIQL Algorithm = "rviql"
)

// GainUpdate selects how Differential Q-learning moves its gain estimate
type GainUpdate string

const (
	// GainGreedy averages the rewards of greedy steps: rho += beta * (r - rho)
	GainGreedy GainUpdate = "greedy"
	// GainTD moves the gain with the temporal difference error: rho += beta * delta
	GainTD GainUpdate = "td"
)

// Step size index
const (
	IndexVisit = "visit"
	IndexStep  = "step"
)

// Exploration policies
const (
	ExploreEpsilonGreedy = "egreedy"
	ExploreSoftmax       = "softmax"
)

// DefaultDivergenceBound beyond which an estimate counts as diverged
const DefaultDivergenceBound = 1e9

// Reference state-action pair of RVI Q-learning
type Reference struct {
	State  types.State  `yaml:"state" json:"state"`
	Action types.Action `yaml:"action" json:"action"`
}

// Config of a Learner
type Config struct {
	Name      string    `yaml:"name" json:"name"`
	Algorithm Algorithm `yaml:"algorithm" json:"algorithm"`

	Alpha   ScheduleConfig `yaml:"alpha" json:"alpha"`
	Beta    ScheduleConfig `yaml:"beta" json:"beta"`
	Epsilon ScheduleConfig `yaml:"epsilon" json:"epsilon"`
	// Exploration is "egreedy" (default) or "softmax", the latter samples
	// actions by the Boltzmann distribution with the Temperature schedule
	Exploration string         `yaml:"exploration" json:"exploration,omitempty"`
	Temperature ScheduleConfig `yaml:"temperature" json:"temperature"`
	// AlphaIndex is "visit" (default) to index alpha by the visits of the
	// updated pair or "step" to index it by the global step
	AlphaIndex string `yaml:"alpha_index" json:"alpha_index"`

	InitialValue float64    `yaml:"initial_value" json:"initial_value"`
	InitialGain  float64    `yaml:"initial_gain" json:"initial_gain"`
	GainUpdate   GainUpdate `yaml:"gain_update" json:"gain_update,omitempty"`
	Reference    *Reference `yaml:"reference" json:"reference,omitempty"`

	DivergenceBound float64 `yaml:"divergence_bound" json:"divergence_bound"`
}

// DefaultConfig uses 1/n step sizes and epsilon-greedy exploration with a constant rate of 0.1
func DefaultConfig(algorithm Algorithm) Config {
	return Config{
		Name:            string(algorithm),
		Algorithm:       algorithm,
		Alpha:           Harmonic(),
		Beta:            Harmonic(),
		Epsilon:         Constant(0.1),
		Exploration:     ExploreEpsilonGreedy,
		Temperature:     Constant(1),
		AlphaIndex:      IndexVisit,
		GainUpdate:      GainGreedy,
		DivergenceBound: DefaultDivergenceBound,
	}
}

// Validate checks the configuration without building a learner
func (c Config) Validate() error {
	_, err := c.build()
	return err
}

type schedules struct {
	alpha       Schedule
	beta        Schedule
	epsilon     Schedule
	temperature Schedule
}

func (c Config) build() (*schedules, error) {
	switch c.Algorithm {
	case AlgorithmDiffQL:
		switch c.GainUpdate {
		case GainGreedy, GainTD, "":
		default:
			return nil, fmt.Errorf("%w: unknown gain update %q", ErrInvalidConfig, c.GainUpdate)
		}
	case AlgorithmRVIQL:
		if c.Reference == nil {
			return nil, fmt.Errorf("%w: rviql requires a reference pair", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, c.Algorithm)
	}
	switch c.AlphaIndex {
	case IndexVisit, IndexStep, "":
	default:
		return nil, fmt.Errorf("%w: unknown alpha index %q", ErrInvalidConfig, c.AlphaIndex)
	}
	switch c.Exploration {
	case ExploreEpsilonGreedy, ExploreSoftmax, "":
	default:
		return nil, fmt.Errorf("%w: unknown exploration %q", ErrInvalidConfig, c.Exploration)
	}
	if c.DivergenceBound < 0 {
		return nil, fmt.Errorf("%w: negative divergence bound", ErrInvalidConfig)
	}

	s := &schedules{}
	var err error
	if s.alpha, err = c.Alpha.Build(); err != nil {
		return nil, fmt.Errorf("alpha: %w", err)
	}
	if s.alpha.Rate(1) <= 0 {
		return nil, fmt.Errorf("alpha: %w: step size must be positive", ErrInvalidSchedule)
	}
	if c.Algorithm == AlgorithmDiffQL {
		if s.beta, err = c.Beta.Build(); err != nil {
			return nil, fmt.Errorf("beta: %w", err)
		}
		if s.beta.Rate(1) <= 0 {
			return nil, fmt.Errorf("beta: %w: step size must be positive", ErrInvalidSchedule)
		}
	}
	if c.Exploration == ExploreSoftmax {
		if s.temperature, err = c.Temperature.Build(); err != nil {
			return nil, fmt.Errorf("temperature: %w", err)
		}
		if s.temperature.Rate(1) <= 0 {
			return nil, fmt.Errorf("temperature: %w: temperature must be positive", ErrInvalidSchedule)
		}
		return s, nil
	}
	if s.epsilon, err = c.Epsilon.Build(); err != nil {
		return nil, fmt.Errorf("epsilon: %w", err)
	}
	if e := s.epsilon.Rate(1); e > 1 {
		return nil, fmt.Errorf("epsilon: %w: exploration rate %v above 1", ErrInvalidSchedule, e)
	}
	return s, nil
}

// Learner is a tabular average-reward Q-learning agent with an
// epsilon-greedy or softmax behaviour policy. The update rule is chosen
// by Config.Algorithm.
type Learner struct {
	config    Config
	schedules *schedules
	rand      *rand.Rand

	qTable      *QTable
	gain        float64
	steps       int
	greedySteps int
	bound       float64
}

var _ types.Policy = &Learner{}

// NewLearner validates the configuration and seeds the exploration
func NewLearner(config Config, seed uint64) (*Learner, error) {
	s, err := config.build()
	if err != nil {
		return nil, err
	}
	bound := config.DivergenceBound
	if bound == 0 {
		bound = DefaultDivergenceBound
	}
	return &Learner{
		config:    config,
		schedules: s,
		rand:      rand.New(rand.NewSource(seed)),
		qTable:    NewQTable(config.InitialValue),
		gain:      config.InitialGain,
		bound:     bound,
	}, nil
}

// LearnerCtor adapts the configuration to the harness' policy constructor
func LearnerCtor(config Config) types.PolicyCtor {
	return func(seed uint64) (types.Policy, error) {
		return NewLearner(config, seed)
	}
}

func (l *Learner) Config() Config {
	return l.config
}

func (l *Learner) QTable() *QTable {
	return l.qTable
}

// Gain is the current estimate of the long-run average reward
func (l *Learner) Gain() float64 {
	if l.config.Algorithm == AlgorithmRVIQL {
		return l.qTable.Get(l.config.Reference.State, l.config.Reference.Action)
	}
	return l.gain
}

func (l *Learner) Record(path string) error {
	return l.qTable.Record(path)
}

// NextAction picks a uniformly random action with probability epsilon,
// a greedy one otherwise. Ties are broken uniformly.
func (l *Learner) NextAction(step int, state types.State, actions []types.Action) (types.Action, error) {
	if len(actions) == 0 {
		return 0, fmt.Errorf("%w: state %d", ErrNoEnabledActions, state)
	}
	if l.config.Exploration == ExploreSoftmax {
		return l.softmaxAction(step, state, actions), nil
	}
	if l.rand.Float64() < l.schedules.epsilon.Rate(step+1) {
		return actions[l.rand.Intn(len(actions))], nil
	}
	best, _ := l.qTable.MaxAmong(state, actions)
	if len(best) == 1 {
		return actions[best[0]], nil
	}
	return actions[best[l.rand.Intn(len(best))]], nil
}

// Update applies the configured update rule for the observed transition
func (l *Learner) Update(step int, state types.State, actions []types.Action, action types.Action, reward float64, nextState types.State, nextActions []types.Action) error {
	l.steps++
	_, stateMax := l.qTable.MaxAmong(state, actions)
	visits := l.qTable.Visit(state, actions, action)
	if visits == 0 {
		return fmt.Errorf("action %d not enabled in state %d", action, state)
	}
	alphaIndex := visits
	if l.config.AlphaIndex == IndexStep {
		alphaIndex = l.steps
	}
	alpha := l.schedules.alpha.Rate(alphaIndex)

	cur := l.qTable.Get(state, action)
	nextMax := l.qTable.Max(nextState, nextActions)

	switch l.config.Algorithm {
	case AlgorithmDiffQL:
		greedy := cur == stateMax
		delta := reward - l.gain + nextMax - cur
		l.qTable.Set(state, action, cur+alpha*delta)
		if l.config.GainUpdate == GainTD {
			l.gain += l.schedules.beta.Rate(l.steps) * delta
		} else if greedy {
			l.greedySteps++
			l.gain += l.schedules.beta.Rate(l.greedySteps) * (reward - l.gain)
		}
	case AlgorithmRVIQL:
		ref := l.qTable.Get(l.config.Reference.State, l.config.Reference.Action)
		l.qTable.Set(state, action, cur+alpha*(reward+nextMax-ref-cur))
	}
	return l.checkDivergence(step, state, action)
}

func (l *Learner) diverged(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > l.bound
}

func (l *Learner) checkDivergence(step int, state types.State, action types.Action) error {
	if v := l.qTable.Get(state, action); l.diverged(v) {
		return fmt.Errorf("%w: Q(%d, %d) = %v at step %d", ErrDiverged, state, action, v, step)
	}
	if g := l.Gain(); l.diverged(g) {
		return fmt.Errorf("%w: gain %v at step %d", ErrDiverged, g, step)
	}
	return nil
}
