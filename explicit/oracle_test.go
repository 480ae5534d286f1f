package explicit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stormOutput = `Storm 1.8.1

Command line arguments: --explicit queue.tra queue.lab --transrew queue.trans.rew --prop "Rmax=? [ LRA ]"

Time for model construction: 0.012s.
Model checking property "1": R[exp]max=? [LRA] ...
Result (for initial states): 0.7231405
Time for model checking: 0.003s.
`

func TestReadGroundTruthFromStormOutput(t *testing.T) {
	v, err := ReadGroundTruth(strings.NewReader(stormOutput))
	require.NoError(t, err)
	assert.Equal(t, 0.7231405, v)
}

func TestReadGroundTruthSingleValue(t *testing.T) {
	v, err := ReadGroundTruth(strings.NewReader("\n 1.5e-1 \n"))
	require.NoError(t, err)
	assert.Equal(t, 0.15, v)
}

func TestReadGroundTruthMissing(t *testing.T) {
	_, err := ReadGroundTruth(strings.NewReader("Time for model checking: 0.003s.\nDone\n"))
	assert.True(t, errors.Is(err, ErrNoGroundTruth))

	_, err = ReadGroundTruth(strings.NewReader("Result (for initial states): nope\n"))
	assert.Error(t, err)
}

func TestReadGroundTruthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storm.out")
	require.NoError(t, os.WriteFile(path, []byte(stormOutput), 0644))
	v, err := ReadGroundTruthFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7231405, v)

	_, err = ReadGroundTruthFile(filepath.Join(t.TempDir(), "missing.out"))
	assert.Error(t, err)
}
