package types

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/golang/glog"
	"github.com/zeu5/avgrl-bench/util"
	"golang.org/x/sync/errgroup"
)

// policySeedMask separates the policy's random stream from the environment's
const policySeedMask uint64 = 0x9e3779b97f4a7c15

// RepetitionSeed is the seed of repetition index, the environment of the
// repetition is seeded with it and the policy with PolicySeed of it
func RepetitionSeed(base uint64, index int) uint64 {
	return base + uint64(index)
}

func PolicySeed(seed uint64) uint64 {
	return seed ^ policySeedMask
}

// Repetition is the outcome of one independent training run
type Repetition struct {
	Index    int
	Seed     uint64
	Estimate float64
	Steps    int
	// StatesVisited is the number of distinct states the agent reached
	StatesVisited int
	Err           error
}

func (r Repetition) Failed() bool {
	return r.Err != nil
}

type experimentRunConfig struct {
	Repetitions  int
	Horizon      int
	BaseSeed     uint64
	Parallelism  int
	RecordTraces bool
	RecordPolicy bool
	RecordPath   string
	Progress     *ProgressPrinter
}

// Experiment trains one algorithm configuration on one environment
type Experiment struct {
	Name       string
	MDPName    string
	policyCtor PolicyCtor
	envCtor    EnvironmentCtor
}

func NewExperiment(name, mdpName string, policyCtor PolicyCtor, envCtor EnvironmentCtor) *Experiment {
	return &Experiment{
		Name:       name,
		MDPName:    mdpName,
		policyCtor: policyCtor,
		envCtor:    envCtor,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, index int, trace *Trace) {
	tracesFile := path.Join(rConfig.RecordPath, "traces", e.Name+"_"+strconv.Itoa(index)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		glog.Warningf("experiment %s: encoding trace %d: %s", e.Name, index, err)
		return
	}
	if err := util.WriteToFile(tracesFile, string(bs)); err != nil {
		glog.Warningf("experiment %s: writing trace %d: %s", e.Name, index, err)
	}
}

// RunRepetition trains a fresh policy on a fresh environment, both seeded from the index
func (e *Experiment) RunRepetition(ctx context.Context, rConfig *experimentRunConfig, index int) Repetition {
	seed := RepetitionSeed(rConfig.BaseSeed, index)
	rep := Repetition{Index: index, Seed: seed}

	policy, err := e.policyCtor(PolicySeed(seed))
	if err != nil {
		rep.Err = err
		return rep
	}
	agent := NewAgent(&AgentConfig{
		Horizon:     rConfig.Horizon,
		RecordTrace: rConfig.RecordTraces,
		Policy:      policy,
		Environment: e.envCtor(seed),
	})
	rep.Steps, rep.Err = agent.Run(ctx)
	rep.Estimate = policy.Gain()
	if visits := agent.Visits(); visits != nil {
		rep.StatesVisited = visits.Distinct()
	}

	if rConfig.RecordTraces && agent.Trace() != nil {
		e.recordTrace(rConfig, index, agent.Trace())
	}
	if rConfig.RecordPolicy {
		policyFile := path.Join(rConfig.RecordPath, "policies", e.Name+"_"+strconv.Itoa(index)+".json")
		if err := policy.Record(policyFile); err != nil {
			glog.Warningf("experiment %s: recording policy %d: %s", e.Name, index, err)
		}
		visitsFile := path.Join(rConfig.RecordPath, "policies", e.Name+"_"+strconv.Itoa(index)+"_visits.json")
		if visits := agent.Visits(); visits != nil {
			if err := visits.Record(visitsFile); err != nil {
				glog.Warningf("experiment %s: recording visits %d: %s", e.Name, index, err)
			}
		}
	}
	return rep
}

// Run all the repetitions, at most Parallelism at a time. Failed
// repetitions are logged and kept in the result with their error.
// Only a cancelled context aborts the run.
func (e *Experiment) Run(ctx context.Context, rConfig *experimentRunConfig) ([]Repetition, error) {
	reps := make([]Repetition, rConfig.Repetitions)
	parallelism := rConfig.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if rConfig.Progress != nil {
		rConfig.Progress.Track(e.Name, rConfig.Repetitions)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < rConfig.Repetitions; i++ {
		if gCtx.Err() != nil {
			break
		}
		index := i
		g.Go(func() error {
			rep := e.RunRepetition(gCtx, rConfig, index)
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			if rep.Failed() {
				glog.Warningf("experiment %s: repetition %d (seed %d) failed after %d steps: %s", e.Name, index, rep.Seed, rep.Steps, rep.Err)
			} else if glog.V(1) {
				glog.Infof("experiment %s: repetition %d estimate %v", e.Name, index, rep.Estimate)
			}
			reps[index] = rep
			if rConfig.Progress != nil {
				rConfig.Progress.Done(e.Name, rep.Failed())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reps, nil
}

func (e *Experiment) String() string {
	return fmt.Sprintf("%s on %s", e.Name, e.MDPName)
}
