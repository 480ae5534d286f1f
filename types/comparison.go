package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"time"

	"github.com/golang/glog"
)

var ErrInvalidComparison = errors.New("invalid comparison configuration")

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Repetitions int     // independent repetitions per experiment
	Horizon     int     // steps per repetition
	BaseSeed    uint64  // repetition i is seeded with BaseSeed + i
	Parallelism int     // repetitions running at the same time
	GroundTruth float64 // long-run average reward computed by the model checker
	Bins        int     // histogram bins
	Confidence  float64 // level of the confidence interval of the mean

	RecordPath   string // path to store the results, nothing is stored when empty
	RecordTraces bool
	RecordPolicy bool

	// Progress is printed to the terminal when set
	Progress *ProgressPrinter
}

func (c *ComparisonConfig) Validate() error {
	switch {
	case c.Repetitions <= 0:
		return fmt.Errorf("%w: repetitions must be positive, got %d", ErrInvalidComparison, c.Repetitions)
	case c.Horizon <= 0:
		return fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidComparison, c.Horizon)
	case math.IsNaN(c.GroundTruth) || math.IsInf(c.GroundTruth, 0):
		return fmt.Errorf("%w: ground truth %v", ErrInvalidComparison, c.GroundTruth)
	case c.Bins <= 0:
		return fmt.Errorf("%w: bins must be positive, got %d", ErrInvalidComparison, c.Bins)
	case c.Confidence <= 0 || c.Confidence >= 1:
		return fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidComparison, c.Confidence)
	case (c.RecordTraces || c.RecordPolicy) && c.RecordPath == "":
		return fmt.Errorf("%w: recording requires a record path", ErrInvalidComparison)
	}
	return nil
}

// ExperimentResult holds the repetitions of an experiment and their summary
type ExperimentResult struct {
	Name        string
	MDPName     string
	Repetitions []Repetition
	Summary     *Summary
	Duration    time.Duration
}

// Record is one row of the results table
type Record struct {
	Algorithm  string
	MDP        string
	Repetition int
	Seed       uint64
	Estimate   float64
	AbsError   float64
	RelError   float64
}

// Records of the successful repetitions
func (r *ExperimentResult) Records() []Record {
	truth := r.Summary.GroundTruth
	records := make([]Record, 0, len(r.Repetitions))
	for _, rep := range r.Repetitions {
		if rep.Failed() {
			continue
		}
		records = append(records, Record{
			Algorithm:  r.Name,
			MDP:        r.MDPName,
			Repetition: rep.Index,
			Seed:       rep.Seed,
			Estimate:   rep.Estimate,
			AbsError:   AbsError(rep.Estimate, truth),
			RelError:   RelError(rep.Estimate, truth),
		})
	}
	return records
}

// Comparator consumes the results of all the experiments of a comparison
type Comparator func([]*ExperimentResult) error

type namedComparator struct {
	name       string
	comparator Comparator
}

// Comparison runs the experiments one after the other and hands the
// results to the comparators in the order they were added
type Comparison struct {
	Experiments []*Experiment
	comparators []namedComparator
	cConfig     *ComparisonConfig
}

// NewComparison creates a comparison instance
func NewComparison(config *ComparisonConfig) *Comparison {
	return &Comparison{
		Experiments: make([]*Experiment, 0),
		comparators: make([]namedComparator, 0),
		cConfig:     config,
	}
}

// AddComparator adds a consumer of the experiment results
func (c *Comparison) AddComparator(name string, comparator Comparator) {
	c.comparators = append(c.comparators, namedComparator{name: name, comparator: comparator})
}

// AddExperiment adds an experiment to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

func (c *Comparison) prepareFolders() error {
	cfg := c.cConfig
	folders := []string{cfg.RecordPath}
	if cfg.RecordTraces {
		folders = append(folders, path.Join(cfg.RecordPath, "traces"))
	}
	if cfg.RecordPolicy {
		folders = append(folders, path.Join(cfg.RecordPath, "policies"))
	}
	for _, f := range folders {
		if err := os.MkdirAll(f, 0777); err != nil {
			return err
		}
	}
	return nil
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["repetitions"] = cfg.Repetitions
	out["horizon"] = cfg.Horizon
	out["base_seed"] = cfg.BaseSeed
	out["parallelism"] = cfg.Parallelism
	out["ground_truth"] = cfg.GroundTruth
	out["bins"] = cfg.Bins
	out["confidence"] = cfg.Confidence
	out["record_traces"] = cfg.RecordTraces
	out["record_policy"] = cfg.RecordPolicy

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.String())
	}
	out["experiments"] = experiments

	comparators := make([]string, 0)
	for _, nc := range c.comparators {
		comparators = append(comparators, nc.name)
	}
	out["comparators"] = comparators

	bs, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(cfg.RecordPath, "comparison_config.json"), bs, 0644)
}

// Run every experiment, summarize it and pass the results to the comparators
func (c *Comparison) Run(ctx context.Context) ([]*ExperimentResult, error) {
	cfg := c.cConfig
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, e := range c.Experiments {
		if names[e.Name] {
			return nil, fmt.Errorf("%w: duplicate experiment name %q", ErrInvalidComparison, e.Name)
		}
		names[e.Name] = true
	}
	if cfg.RecordPath != "" {
		if err := c.prepareFolders(); err != nil {
			return nil, err
		}
		if err := c.recordConfig(); err != nil {
			return nil, err
		}
	}

	rConfig := &experimentRunConfig{
		Repetitions:  cfg.Repetitions,
		Horizon:      cfg.Horizon,
		BaseSeed:     cfg.BaseSeed,
		Parallelism:  cfg.Parallelism,
		RecordTraces: cfg.RecordTraces,
		RecordPolicy: cfg.RecordPolicy,
		RecordPath:   cfg.RecordPath,
		Progress:     cfg.Progress,
	}
	if cfg.Progress != nil {
		cfg.Progress.Start(ctx)
		defer cfg.Progress.Stop()
	}

	results := make([]*ExperimentResult, 0, len(c.Experiments))
	for _, e := range c.Experiments {
		glog.Infof("running experiment %s: %d repetitions of %d steps", e, cfg.Repetitions, cfg.Horizon)
		start := time.Now()
		reps, err := e.Run(ctx, rConfig)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", e.Name, err)
		}
		summary := Summarize(e.Name, e.MDPName, cfg.GroundTruth, reps, cfg.Bins, cfg.Confidence)
		result := &ExperimentResult{
			Name:        e.Name,
			MDPName:     e.MDPName,
			Repetitions: reps,
			Summary:     summary,
			Duration:    time.Since(start),
		}
		glog.Infof("experiment %s done in %s: mean %v, %d failed", e.Name, result.Duration, summary.Mean, summary.Failures)
		results = append(results, result)
	}
	if cfg.Progress != nil {
		cfg.Progress.Stop()
	}

	for _, nc := range c.comparators {
		if err := nc.comparator(results); err != nil {
			return results, fmt.Errorf("comparator %s: %w", nc.name, err)
		}
	}
	return results, nil
}
