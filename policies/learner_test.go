package policies

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/avgrl-bench/explicit"
	"github.com/zeu5/avgrl-bench/types"
)

func parseModel(t *testing.T, tra, rew string) *explicit.MDP {
	t.Helper()
	m, err := explicit.Parse("test", strings.NewReader(tra), nil, strings.NewReader(rew))
	require.NoError(t, err)
	return m
}

func configFor(m *explicit.MDP, algorithm Algorithm) Config {
	config := DefaultConfig(algorithm)
	if algorithm == AlgorithmRVIQL {
		s, a := m.DefaultReference()
		config.Reference = &Reference{State: s, Action: a}
	}
	return config
}

func train(t *testing.T, m *explicit.MDP, config Config, horizon int, seed uint64) (*Learner, *types.Trace) {
	t.Helper()
	learner, err := NewLearner(config, types.PolicySeed(seed))
	require.NoError(t, err)
	agent := types.NewAgent(&types.AgentConfig{
		Horizon:     horizon,
		RecordTrace: true,
		Policy:      learner,
		Environment: explicit.NewEnvironment(m, seed),
	})
	steps, err := agent.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, horizon, steps)
	return learner, agent.Trace()
}

var algorithms = []Algorithm{AlgorithmDiffQL, AlgorithmRVIQL}

func TestSelfLoopConvergesToReward(t *testing.T) {
	m := parseModel(t, "mdp\n0 0 0 1\n", "0 0 0 3\n")
	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			learner, _ := train(t, m, configFor(m, algorithm), 1000, 1)
			assert.InDelta(t, 3.0, learner.Gain(), 1e-9)

			config := configFor(m, algorithm)
			config.Alpha = Polynomial(1, 0.6)
			learner, _ = train(t, m, config, 20000, 1)
			assert.InDelta(t, 3.0, learner.Gain(), 1e-3)
		})
	}
}

func TestSelfLoopTDGainUpdate(t *testing.T) {
	m := parseModel(t, "mdp\n0 0 0 1\n", "0 0 0 3\n")
	config := configFor(m, AlgorithmDiffQL)
	config.GainUpdate = GainTD
	learner, _ := train(t, m, config, 1000, 1)
	assert.InDelta(t, 3.0, learner.Gain(), 1e-6)
}

func TestTwoStateCycleMatchesAverageReward(t *testing.T) {
	// rewards 2 and 4 alternate, the long-run average reward is 3
	m := parseModel(t, "mdp\n0 0 1 1\n1 0 0 1\n", "0 0 1 2\n1 0 0 4\n")
	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			learner, trace := train(t, m, configFor(m, algorithm), 10000, 5)
			assert.InEpsilon(t, 3.0, learner.Gain(), 0.05)
			assert.InDelta(t, 3.0, trace.AverageReward(), 1e-9)
		})
	}
}

func TestPrefersRewardingAction(t *testing.T) {
	// action 0 pays 1, action 1 pays nothing, both loop on the single state
	m := parseModel(t, "mdp\n0 0 0 1\n0 1 0 1\n", "0 0 1\n")
	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			for seed := uint64(0); seed < 5; seed++ {
				learner, _ := train(t, m, configFor(m, algorithm), 50000, seed)
				assert.InDelta(t, 1.0, learner.Gain(), 0.05, "seed %d", seed)
			}
		})
	}
}

func TestSoftmaxPrefersRewardingAction(t *testing.T) {
	m := parseModel(t, "mdp\n0 0 0 1\n0 1 0 1\n", "0 0 1\n")
	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			config := configFor(m, algorithm)
			config.Exploration = ExploreSoftmax
			config.Temperature = Constant(0.1)
			learner, trace := train(t, m, config, 20000, 2)
			assert.InDelta(t, 1.0, learner.Gain(), 0.05)
			assert.Greater(t, trace.AverageReward(), 0.9)
		})
	}
}

func TestSameSeedSameTrajectory(t *testing.T) {
	m, err := explicit.Random(explicit.RandomConfig{States: 20, Actions: 3, Branches: 4, MaxReward: 5, Seed: 11})
	require.NoError(t, err)
	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			first, firstTrace := train(t, m, configFor(m, algorithm), 2000, 42)
			second, secondTrace := train(t, m, configFor(m, algorithm), 2000, 42)
			assert.True(t, firstTrace.Eq(secondTrace))
			assert.Equal(t, first.Gain(), second.Gain())

			_, otherTrace := train(t, m, configFor(m, algorithm), 2000, 43)
			assert.False(t, firstTrace.Eq(otherTrace))
		})
	}
}

func TestDivergenceIsReported(t *testing.T) {
	config := DefaultConfig(AlgorithmDiffQL)
	config.DivergenceBound = 10
	learner, err := NewLearner(config, 1)
	require.NoError(t, err)

	actions := []types.Action{0}
	err = learner.Update(0, 0, actions, 0, 100, 0, actions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiverged))
}

func TestUpdateRejectsUnknownAction(t *testing.T) {
	learner, err := NewLearner(DefaultConfig(AlgorithmDiffQL), 1)
	require.NoError(t, err)
	actions := []types.Action{0}
	assert.Error(t, learner.Update(0, 0, actions, 3, 1, 0, actions))
}

func TestGreedyGainIgnoresExploratorySteps(t *testing.T) {
	learner, err := NewLearner(DefaultConfig(AlgorithmDiffQL), 1)
	require.NoError(t, err)
	actions := []types.Action{0, 1}

	// action 0 becomes greedy
	require.NoError(t, learner.Update(0, 0, actions, 0, 1, 0, actions))
	assert.Equal(t, 1.0, learner.Gain())
	assert.Equal(t, 1.0, learner.QTable().Get(0, 0))

	// action 1 is not greedy anymore, its reward does not move the gain
	require.NoError(t, learner.Update(1, 0, actions, 1, 0, 0, actions))
	assert.Equal(t, 1.0, learner.Gain())
}

func TestNextAction(t *testing.T) {
	config := DefaultConfig(AlgorithmDiffQL)
	config.Epsilon = Constant(0)
	learner, err := NewLearner(config, 3)
	require.NoError(t, err)

	_, err = learner.NextAction(0, 0, nil)
	assert.True(t, errors.Is(err, ErrNoEnabledActions))

	actions := []types.Action{4, 7}
	chosen := make(map[types.Action]int)
	for i := 0; i < 200; i++ {
		a, err := learner.NextAction(i, 0, actions)
		require.NoError(t, err)
		chosen[a]++
	}
	// ties between untouched actions are broken at random
	assert.Greater(t, chosen[4], 0)
	assert.Greater(t, chosen[7], 0)

	learner.QTable().Set(0, 7, 1)
	for i := 0; i < 50; i++ {
		a, err := learner.NextAction(i, 0, actions)
		require.NoError(t, err)
		assert.Equal(t, types.Action(7), a)
	}
}

func TestConfigValidation(t *testing.T) {
	ref := &Reference{State: 0, Action: 0}
	valid := DefaultConfig(AlgorithmRVIQL)
	valid.Reference = ref
	require.NoError(t, valid.Validate())
	require.NoError(t, DefaultConfig(AlgorithmDiffQL).Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"unknown algorithm", func(c *Config) { c.Algorithm = "sarsa" }, ErrInvalidConfig},
		{"rviql without reference", func(c *Config) { c.Algorithm = AlgorithmRVIQL }, ErrInvalidConfig},
		{"unknown gain update", func(c *Config) { c.GainUpdate = "avg" }, ErrInvalidConfig},
		{"unknown alpha index", func(c *Config) { c.AlphaIndex = "episode" }, ErrInvalidConfig},
		{"negative divergence bound", func(c *Config) { c.DivergenceBound = -1 }, ErrInvalidConfig},
		{"zero alpha", func(c *Config) { c.Alpha = Constant(0) }, ErrInvalidSchedule},
		{"missing kind", func(c *Config) { c.Beta = ScheduleConfig{} }, ErrInvalidSchedule},
		{"harmonic without scale", func(c *Config) { c.Alpha = ScheduleConfig{Kind: ScheduleHarmonic} }, ErrInvalidSchedule},
		{"epsilon above one", func(c *Config) { c.Epsilon = Constant(1.5) }, ErrInvalidSchedule},
		{"exponential decay above one", func(c *Config) { c.Epsilon = Exponential(1, 2, 0) }, ErrInvalidSchedule},
		{"unknown kind", func(c *Config) { c.Alpha = ScheduleConfig{Kind: "cosine"} }, ErrInvalidSchedule},
		{"unknown exploration", func(c *Config) { c.Exploration = "ucb" }, ErrInvalidConfig},
		{"zero temperature", func(c *Config) {
			c.Exploration = ExploreSoftmax
			c.Temperature = Constant(0)
		}, ErrInvalidSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig(AlgorithmDiffQL)
			tt.modify(&config)
			err := config.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)

			_, err = NewLearner(config, 0)
			assert.Error(t, err)
		})
	}
}
