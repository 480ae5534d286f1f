package explicit

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/avgrl-bench/types"
)

const sampleTra = `mdp
# two states, state 0 has two actions
0 0 0 0.5
0 0 1 0.5
0 1 1 1
1 0 0 1
`

const sampleLab = `#DECLARATION
init served
#END
0 init
1 served
`

const sampleRew = `1 2
0 0 0.5
0 0 1 1.25
`

func TestParseSample(t *testing.T) {
	m, err := Parse("sample", strings.NewReader(sampleTra), strings.NewReader(sampleLab), strings.NewReader(sampleRew))
	require.NoError(t, err)

	assert.Equal(t, "sample", m.Name())
	assert.Equal(t, []types.State{0, 1}, m.States())
	assert.Equal(t, []types.Action{0, 1}, m.Actions(0))
	assert.Equal(t, []types.Action{0}, m.Actions(1))
	assert.Equal(t, []types.State{0}, m.Initial())
	assert.Equal(t, []string{"init", "served"}, m.DeclaredLabels())
	assert.Equal(t, []string{"served"}, m.Labels(1))
	assert.Equal(t, 3, m.NumChoices())
	assert.Equal(t, 4, m.NumTransitions())

	c, ok := m.Choice(0, 0)
	require.True(t, ok)
	assert.Equal(t, []Branch{
		{Dest: 0, Prob: 0.5, Reward: 0.5},
		{Dest: 1, Prob: 0.5, Reward: 1.75},
	}, c.Branches)

	c, ok = m.Choice(0, 1)
	require.True(t, ok)
	assert.Equal(t, []Branch{{Dest: 1, Prob: 1, Reward: 0}}, c.Branches)

	c, ok = m.Choice(1, 0)
	require.True(t, ok)
	assert.Equal(t, []Branch{{Dest: 0, Prob: 1, Reward: 2}}, c.Branches)

	assert.False(t, m.Enabled(1, 1))
	assert.False(t, m.Enabled(7, 0))
}

func TestParseWithoutLabelsUsesSmallestState(t *testing.T) {
	tra := "mdp\n3 0 5 1\n5 0 3 1\n"
	m, err := Parse("nolab", strings.NewReader(tra), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.State{3}, m.Initial())
	s, a := m.DefaultReference()
	assert.Equal(t, types.State(3), s)
	assert.Equal(t, types.Action(0), a)
}

func TestParseMultipleInitialStates(t *testing.T) {
	lab := "#DECLARATION\ninit\n#END\n0 init\n1 init\n"
	m, err := Parse("multi", strings.NewReader(sampleTra), strings.NewReader(lab), nil)
	require.NoError(t, err)
	assert.Equal(t, []types.State{0, 1}, m.Initial())
}

func TestParseDTMC(t *testing.T) {
	tra := "dtmc\n0 1 1\n1 0 0.25\n1 1 0.75\n"
	m, err := Parse("chain", strings.NewReader(tra), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Action{0}, m.Actions(1))
	c, ok := m.Choice(1, 0)
	require.True(t, ok)
	assert.Len(t, c.Branches, 2)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		tra  string
		lab  string
		rew  string
		file string
		line int
	}{
		{name: "probabilities do not sum to one", tra: "mdp\n0 0 0 0.5\n0 0 1 0.4\n1 0 0 1\n", file: "bad.tra"},
		{name: "dangling destination", tra: "mdp\n0 0 0 0.5\n0 0 2 0.5\n", file: "bad.tra"},
		{name: "wrong field count", tra: "mdp\n0 0 0\n", file: "bad.tra", line: 2},
		{name: "invalid probability", tra: "mdp\n0 0 0 x\n", file: "bad.tra", line: 2},
		{name: "probability out of range", tra: "mdp\n0 0 0 1.5\n", file: "bad.tra", line: 2},
		{name: "nan probability", tra: "mdp\n0 0 0 NaN\n", file: "bad.tra", line: 2},
		{name: "nan probability among valid branches", tra: "mdp\n0 0 0 0.5\n0 0 1 nan\n1 0 1 1\n", file: "bad.tra", line: 3},
		{name: "infinite probability", tra: "mdp\n0 0 0 +Inf\n", file: "bad.tra", line: 2},
		{name: "zero probability", tra: "mdp\n0 0 0 0\n0 0 0 1\n", file: "bad.tra", line: 2},
		{name: "negative state", tra: "mdp\n-1 0 0 1\n", file: "bad.tra", line: 2},
		{name: "duplicate transition", tra: "mdp\n0 0 0 0.5\n0 0 0 0.5\n", file: "bad.tra", line: 3},
		{name: "empty transitions", tra: "mdp\n# nothing\n", file: "bad.tra"},
		{name: "unsupported model", tra: "ctmc\n0 0 1\n", file: "bad.tra", line: 1},
		{name: "undeclared label", tra: sampleTra, lab: "#DECLARATION\ninit\n#END\n0 init goal\n", file: "bad.lab", line: 4},
		{name: "label for undeclared state", tra: sampleTra, lab: "#DECLARATION\ninit\n#END\n9 init\n", file: "bad.lab", line: 4},
		{name: "missing declaration end", tra: sampleTra, lab: "#DECLARATION\ninit\n", file: "bad.lab"},
		{name: "reward for undeclared state", tra: sampleTra, rew: "4 1\n", file: "bad.rew", line: 1},
		{name: "reward for undeclared action", tra: sampleTra, rew: "1 1 1\n", file: "bad.rew", line: 1},
		{name: "reward for undeclared transition", tra: sampleTra, rew: "0 1 0 1\n", file: "bad.rew", line: 1},
		{name: "duplicate reward", tra: sampleTra, rew: "0 0 1\n0 0 2\n", file: "bad.rew", line: 2},
		{name: "duplicate reward with padded action", tra: sampleTra, rew: "0 0 1\n0 00 2\n", file: "bad.rew", line: 2},
		{name: "duplicate transition reward with padded state", tra: sampleTra, rew: "0 0 0 1\n00 0 0 1\n", file: "bad.rew", line: 2},
		{name: "nan reward", tra: sampleTra, rew: "0 0 NaN\n", file: "bad.rew", line: 1},
		{name: "infinite reward", tra: sampleTra, rew: "1 -inf\n", file: "bad.rew", line: 1},
		{name: "malformed reward", tra: sampleTra, rew: "0 0 0 1 2\n", file: "bad.rew", line: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lab, rew *strings.Reader
			if tt.lab != "" {
				lab = strings.NewReader(tt.lab)
			}
			if tt.rew != "" {
				rew = strings.NewReader(tt.rew)
			}
			var m *MDP
			var err error
			switch {
			case lab != nil && rew != nil:
				m, err = Parse("bad", strings.NewReader(tt.tra), lab, rew)
			case lab != nil:
				m, err = Parse("bad", strings.NewReader(tt.tra), lab, nil)
			case rew != nil:
				m, err = Parse("bad", strings.NewReader(tt.tra), nil, rew)
			default:
				m, err = Parse("bad", strings.NewReader(tt.tra), nil, nil)
			}
			require.Error(t, err)
			assert.Nil(t, m)

			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr), "expected a FormatError, got %v", err)
			assert.Equal(t, tt.file, formatErr.File)
			assert.Equal(t, tt.line, formatErr.Line)
		})
	}
}

func TestValidateRejectsNaNProbabilitySum(t *testing.T) {
	m := &MDP{
		name: "nan",
		choices: map[types.State][]Choice{
			0: {{Action: 0, Branches: []Branch{{Dest: 0, Prob: 0.5}, {Dest: 1, Prob: math.NaN()}}}},
			1: {{Action: 0, Branches: []Branch{{Dest: 1, Prob: 1}}}},
		},
		labels: make(map[types.State][]string),
	}
	err := m.validate("nan.tra")
	require.Error(t, err)
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, "nan.tra", formatErr.File)
}

func TestRandomProbabilitiesSumToOne(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		m, err := Random(RandomConfig{States: 15, Actions: 3, Branches: 4, MaxReward: 5, Seed: seed})
		require.NoError(t, err)
		for _, s := range m.States() {
			for _, a := range m.Actions(s) {
				c, ok := m.Choice(s, a)
				require.True(t, ok)
				sum := 0.0
				for _, b := range c.Branches {
					sum += b.Prob
				}
				assert.InDelta(t, 1.0, sum, ProbabilityTolerance)
			}
		}
	}
}

func requireSameModel(t *testing.T, expected, actual *MDP) {
	t.Helper()
	require.Equal(t, expected.States(), actual.States())
	require.Equal(t, expected.Initial(), actual.Initial())
	require.Equal(t, expected.DeclaredLabels(), actual.DeclaredLabels())
	for _, s := range expected.States() {
		require.Equal(t, expected.Actions(s), actual.Actions(s))
		require.Equal(t, expected.Labels(s), actual.Labels(s))
		for _, a := range expected.Actions(s) {
			ec, _ := expected.Choice(s, a)
			ac, ok := actual.Choice(s, a)
			require.True(t, ok)
			require.Equal(t, ec, ac, "state %d action %d", s, a)
		}
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		m, err := Random(RandomConfig{Name: "rt", States: 25, Actions: 4, Branches: 5, MaxReward: 10, Seed: seed})
		require.NoError(t, err)

		var tra, lab, rew bytes.Buffer
		require.NoError(t, Write(m, &tra, &lab, &rew))

		parsed, err := Parse("rt", &tra, &lab, &rew)
		require.NoError(t, err)
		requireSameModel(t, m, parsed)
	}
}

func TestWriteFilesRoundTrip(t *testing.T) {
	m, err := Parse("sample", strings.NewReader(sampleTra), strings.NewReader(sampleLab), strings.NewReader(sampleRew))
	require.NoError(t, err)

	files, err := WriteFiles(m, filepath.Join(t.TempDir(), "sample"))
	require.NoError(t, err)
	assert.Equal(t, "sample", files.Name())

	parsed, err := ParseFiles(files)
	require.NoError(t, err)
	requireSameModel(t, m, parsed)
}

func TestParseFilesMissing(t *testing.T) {
	_, err := ParseFiles(Files{})
	require.Error(t, err)

	_, err = ParseFiles(Files{Transitions: filepath.Join(t.TempDir(), "missing.tra")})
	require.Error(t, err)
}

func TestRandomRejectsEmptyModels(t *testing.T) {
	_, err := Random(RandomConfig{States: 0, Actions: 1, Branches: 1})
	require.Error(t, err)
}

func TestFormatErrorMessage(t *testing.T) {
	assert.Equal(t, "m.tra:3: bad", (&FormatError{File: "m.tra", Line: 3, Msg: "bad"}).Error())
	assert.Equal(t, "m.tra: bad", (&FormatError{File: "m.tra", Msg: "bad"}).Error())
}
