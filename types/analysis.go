package types

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Histogram of the final estimates, Counts[i] holds the estimates in
// [Dividers[i], Dividers[i+1])
type Histogram struct {
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
}

// Summary of the final estimates of an experiment against the ground truth
type Summary struct {
	Name        string  `json:"name"`
	MDPName     string  `json:"mdp"`
	GroundTruth float64 `json:"ground_truth"`

	Count    int `json:"count"`
	Failures int `json:"failures"`

	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	StdErr   float64 `json:"std_err"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`

	Confidence float64 `json:"confidence"`
	CILow      float64 `json:"ci_low"`
	CIHigh     float64 `json:"ci_high"`

	MeanAbsError float64 `json:"mean_abs_error"`
	RMSE         float64 `json:"rmse"`
	MeanRelError float64 `json:"mean_rel_error"`

	MeanStatesVisited float64 `json:"mean_states_visited"`

	Histogram *Histogram `json:"histogram"`
	// WithinConfidence is true when the ground truth lies in the confidence interval of the mean
	WithinConfidence bool `json:"within_confidence"`
}

// sameValueTolerance for the degenerate case of identical estimates
const sameValueTolerance = 1e-9

// Estimates of the successful repetitions, in repetition order
func Estimates(reps []Repetition) []float64 {
	estimates := make([]float64, 0, len(reps))
	for _, r := range reps {
		if !r.Failed() {
			estimates = append(estimates, r.Estimate)
		}
	}
	return estimates
}

// AbsError of an estimate against the ground truth
func AbsError(estimate, truth float64) float64 {
	return math.Abs(estimate - truth)
}

// RelError of an estimate against the ground truth, NaN when the truth is 0
func RelError(estimate, truth float64) float64 {
	if truth == 0 {
		return math.NaN()
	}
	return math.Abs(estimate-truth) / math.Abs(truth)
}

// Summarize the successful repetitions. Failed ones only count in Failures.
func Summarize(name, mdpName string, truth float64, reps []Repetition, bins int, confidence float64) *Summary {
	estimates := Estimates(reps)
	s := &Summary{
		Name:        name,
		MDPName:     mdpName,
		GroundTruth: truth,
		Count:       len(estimates),
		Failures:    len(reps) - len(estimates),
		Confidence:  confidence,
	}
	if s.Count == 0 {
		nan := math.NaN()
		s.Mean, s.Variance, s.StdDev, s.StdErr = nan, nan, nan, nan
		s.Min, s.Max, s.Median = nan, nan, nan
		s.CILow, s.CIHigh = nan, nan
		s.MeanAbsError, s.RMSE, s.MeanRelError = nan, nan, nan
		s.MeanStatesVisited = nan
		return s
	}

	sorted := make([]float64, len(estimates))
	copy(sorted, estimates)
	sort.Float64s(sorted)

	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if s.Count > 1 {
		s.Mean, s.Variance = stat.MeanVariance(estimates, nil)
		s.StdDev = math.Sqrt(s.Variance)
		s.StdErr = stat.StdErr(s.StdDev, float64(s.Count))
	} else {
		s.Mean = estimates[0]
	}

	half := 0.0
	if s.Count > 1 && s.StdErr > 0 {
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(s.Count - 1)}
		half = t.Quantile(0.5+confidence/2) * s.StdErr
	}
	s.CILow, s.CIHigh = s.Mean-half, s.Mean+half
	if half == 0 {
		s.WithinConfidence = math.Abs(s.Mean-truth) <= sameValueTolerance*math.Max(1, math.Abs(truth))
	} else {
		s.WithinConfidence = s.CILow <= truth && truth <= s.CIHigh
	}

	absErrors := make([]float64, len(estimates))
	sqErrors := make([]float64, len(estimates))
	relErrors := make([]float64, len(estimates))
	for i, v := range estimates {
		absErrors[i] = AbsError(v, truth)
		sqErrors[i] = absErrors[i] * absErrors[i]
		relErrors[i] = RelError(v, truth)
	}
	s.MeanAbsError = stat.Mean(absErrors, nil)
	s.RMSE = math.Sqrt(stat.Mean(sqErrors, nil))
	s.MeanRelError = stat.Mean(relErrors, nil)

	visited := make([]float64, 0, len(estimates))
	for _, r := range reps {
		if !r.Failed() {
			visited = append(visited, float64(r.StatesVisited))
		}
	}
	s.MeanStatesVisited = stat.Mean(visited, nil)

	s.Histogram = NewHistogram(sorted, bins)
	return s
}

// NewHistogram bins sorted values into equally wide bins spanning their range
func NewHistogram(sorted []float64, bins int) *Histogram {
	if len(sorted) == 0 || bins < 1 {
		return nil
	}
	low, high := sorted[0], sorted[len(sorted)-1]
	if low == high {
		low, high = low-0.5, high+0.5
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, low, high)
	// the last bin is closed so that the maximum is counted
	dividers[bins] = math.Nextafter(high, math.Inf(1))
	counts := make([]float64, bins)
	stat.Histogram(counts, dividers, sorted, nil)
	return &Histogram{Dividers: dividers, Counts: counts}
}
