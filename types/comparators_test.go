package types

import (
	"bytes"
	"encoding/csv"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []*ExperimentResult {
	diffReps := repetitions(0.5, 0.75)
	rviReps := repetitions(0.5, 0.5, 0.5)
	rviReps[1].Err = assert.AnError
	return []*ExperimentResult{
		{Name: "diffql", MDPName: "sample", Repetitions: diffReps, Summary: Summarize("diffql", "sample", 0.5, diffReps, 2, 0.95)},
		{Name: "rviql", MDPName: "sample", Repetitions: rviReps, Summary: Summarize("rviql", "sample", 0.5, rviReps, 2, 0.95)},
	}
}

func TestWriteRecords(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteRecords(buf, sampleResults()))

	rows, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, RecordsHeader, rows[0])
	assert.Equal(t, []string{"diffql", "sample", "1", "1", "0.75", "0.25", "0.5"}, rows[2])
	// the failed repetition 1 of rviql is left out
	assert.Equal(t, "0", rows[3][2])
	assert.Equal(t, "2", rows[4][2])
}

func TestWriteSummaries(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteSummaries(buf, sampleResults()))

	rows, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, SummaryHeader, rows[0])
	for _, row := range rows {
		assert.Len(t, row, len(SummaryHeader))
	}
	assert.Equal(t, "diffql", rows[1][0])
	assert.Equal(t, "0.625", rows[1][5])
	assert.Equal(t, "rviql", rows[2][0])
	assert.Equal(t, "2", rows[2][3])
	assert.Equal(t, "1", rows[2][4])
	assert.Equal(t, "true", rows[2][17])
}

func TestCSVComparators(t *testing.T) {
	dir := t.TempDir()
	results := sampleResults()
	require.NoError(t, RecordsCSV(path.Join(dir, "results.csv"))(results))
	require.NoError(t, SummaryCSV(path.Join(dir, "summary.csv"))(results))

	bs, err := os.ReadFile(path.Join(dir, "summary.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(bs), strings.Join(SummaryHeader, ",")))
}

func TestTerminalSummary(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, TerminalSummary(buf)(sampleResults()))
	out := buf.String()
	assert.Contains(t, out, "Experiment")
	assert.Contains(t, out, "diffql")
	assert.Contains(t, out, "rviql")
	assert.Contains(t, out, "within CI")
}

func TestHistogramPlotter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, HistogramPlotter(dir, 4)(sampleResults()))
	for _, name := range []string{"diffql", "rviql"} {
		_, err := os.Stat(path.Join(dir, name+"_histogram.png"))
		assert.NoError(t, err)
	}
}

func TestProgressPrinter(t *testing.T) {
	buf := new(bytes.Buffer)
	p := NewProgressPrinter(buf, time.Hour)
	p.Track("diffql", 10)
	p.Track("rv", 5)
	for i := 0; i < 3; i++ {
		p.Done("diffql", i == 0)
	}
	p.Done("unknown", true)

	assert.Equal(t,
		"Exp:diffql, Reps: 3/10 [ 30.0%], Failed:1\nExp:    rv, Reps:0/5 [  0.0%], Failed:0",
		p.String())

	p.Stop()
	p.Stop()
	assert.Equal(t, 1, strings.Count(buf.String(), "Exp:diffql"))
}
