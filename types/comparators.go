package types

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"os"
	"path"
	"strconv"
	"text/tabwriter"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// RecordsHeader of the results table
var RecordsHeader = []string{"algorithm", "mdp", "repetition", "seed", "estimate", "abs_error", "rel_error"}

// WriteRecords writes one row per successful repetition of every experiment
func WriteRecords(w io.Writer, results []*ExperimentResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(RecordsHeader); err != nil {
		return err
	}
	for _, r := range results {
		for _, rec := range r.Records() {
			row := []string{
				rec.Algorithm,
				rec.MDP,
				strconv.Itoa(rec.Repetition),
				strconv.FormatUint(rec.Seed, 10),
				formatFloat(rec.Estimate),
				formatFloat(rec.AbsError),
				formatFloat(rec.RelError),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// RecordsCSV stores the results table in the file at filePath
func RecordsCSV(filePath string) Comparator {
	return func(results []*ExperimentResult) error {
		f, err := os.Create(filePath)
		if err != nil {
			return err
		}
		defer f.Close()
		return WriteRecords(f, results)
	}
}

// SummaryHeader of the summary table
var SummaryHeader = []string{
	"algorithm", "mdp", "ground_truth", "count", "failures", "mean", "variance", "std_dev", "std_err",
	"min", "max", "median", "ci_low", "ci_high", "mean_abs_error", "rmse", "mean_rel_error", "within_confidence", "mean_states_visited",
}

// WriteSummaries writes one row per experiment
func WriteSummaries(w io.Writer, results []*ExperimentResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(SummaryHeader); err != nil {
		return err
	}
	for _, r := range results {
		s := r.Summary
		row := []string{
			s.Name, s.MDPName, formatFloat(s.GroundTruth), strconv.Itoa(s.Count), strconv.Itoa(s.Failures),
			formatFloat(s.Mean), formatFloat(s.Variance), formatFloat(s.StdDev), formatFloat(s.StdErr),
			formatFloat(s.Min), formatFloat(s.Max), formatFloat(s.Median), formatFloat(s.CILow), formatFloat(s.CIHigh),
			formatFloat(s.MeanAbsError), formatFloat(s.RMSE), formatFloat(s.MeanRelError), strconv.FormatBool(s.WithinConfidence),
			formatFloat(s.MeanStatesVisited),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SummaryCSV stores the summary table in the file at filePath
func SummaryCSV(filePath string) Comparator {
	return func(results []*ExperimentResult) error {
		f, err := os.Create(filePath)
		if err != nil {
			return err
		}
		defer f.Close()
		return WriteSummaries(f, results)
	}
}

// TerminalSummary prints the summaries as a table with a coloured verdict
func TerminalSummary(out io.Writer) Comparator {
	return func(results []*ExperimentResult) error {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "Experiment\tMDP\tTruth\tMean\tCI\tMAE\tMRE\tOK/Failed\tVerdict")
		for _, r := range results {
			s := r.Summary
			verdict := aurora.Red("outside CI")
			if s.WithinConfidence {
				verdict = aurora.Green("within CI")
			}
			fmt.Fprintf(w, "%s\t%s\t%.6g\t%.6g\t[%.6g, %.6g]\t%.4g\t%.4g\t%d/%d\t%s\n",
				s.Name, s.MDPName, s.GroundTruth, s.Mean, s.CILow, s.CIHigh, s.MeanAbsError, s.MeanRelError, s.Count, s.Failures, verdict)
		}
		return w.Flush()
	}
}

// HistogramPlotter saves one histogram of the final estimates per
// experiment with the ground truth drawn as a vertical line
func HistogramPlotter(plotPath string, bins int) Comparator {
	return func(results []*ExperimentResult) error {
		if err := os.MkdirAll(plotPath, os.ModePerm); err != nil {
			return err
		}
		for i, r := range results {
			estimates := Estimates(r.Repetitions)
			if len(estimates) == 0 {
				continue
			}
			p := plot.New()
			p.Title.Text = fmt.Sprintf("%s on %s", r.Name, r.MDPName)
			p.X.Label.Text = "Final gain estimate"
			p.Y.Label.Text = "Repetitions"

			hist, err := plotter.NewHist(plotter.Values(estimates), bins)
			if err != nil {
				return err
			}
			hist.FillColor = plotutil.Color(i)
			p.Add(hist)

			maxCount := 0.0
			for _, b := range hist.Bins {
				if b.Weight > maxCount {
					maxCount = b.Weight
				}
			}
			truth, err := plotter.NewLine(plotter.XYs{
				{X: r.Summary.GroundTruth, Y: 0},
				{X: r.Summary.GroundTruth, Y: maxCount},
			})
			if err != nil {
				return err
			}
			truth.Color = color.RGBA{R: 200, A: 255}
			truth.Width = vg.Points(2)
			p.Add(truth)
			p.Legend.Add("ground truth", truth)

			if err := p.Save(8*vg.Inch, 6*vg.Inch, path.Join(plotPath, r.Name+"_histogram.png")); err != nil {
				return err
			}
		}
		return nil
	}
}
