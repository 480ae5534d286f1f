package benchmarks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/zeu5/avgrl-bench/explicit"
	"github.com/zeu5/avgrl-bench/policies"
	"github.com/zeu5/avgrl-bench/types"
	"github.com/zeu5/avgrl-bench/util"
)

const progressFrequency = 500 * time.Millisecond

// RunBenchmark trains every configured learner on the model and compares
// the final gain estimates with the ground truth. The results are saved in
// config.SavePath and the summary table is printed to out.
func RunBenchmark(ctx context.Context, config *RunConfig, out io.Writer) ([]*types.ExperimentResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m, err := explicit.ParseFiles(config.Model)
	if err != nil {
		return nil, err
	}
	glog.Infof("parsed %s: %d states, %d choices, %d transitions", m.Name(), len(m.States()), m.NumChoices(), m.NumTransitions())
	truth, err := config.ResolveGroundTruth()
	if err != nil {
		return nil, err
	}
	learners, err := config.learners(m)
	if err != nil {
		return nil, err
	}
	if config.SavePath != "" {
		if err := util.WriteToFile(path.Join(config.SavePath, "config.txt"), config.Printable(), "", m.Printable()); err != nil {
			return nil, err
		}
	}

	cConfig := &types.ComparisonConfig{
		Repetitions:  config.Repetitions,
		Horizon:      config.Horizon,
		BaseSeed:     config.Seed,
		Parallelism:  config.Parallelism,
		GroundTruth:  truth,
		Bins:         config.Bins,
		Confidence:   config.Confidence,
		RecordPath:   config.SavePath,
		RecordTraces: config.RecordTraces,
		RecordPolicy: config.RecordPolicy,
	}
	if !config.Quiet {
		cConfig.Progress = types.NewProgressPrinter(out, progressFrequency)
	}

	comparison := types.NewComparison(cConfig)
	envCtor := explicit.EnvironmentCtor(m)
	for _, l := range learners {
		comparison.AddExperiment(types.NewExperiment(l.Name, m.Name(), policies.LearnerCtor(l), envCtor))
	}
	if config.SavePath != "" {
		comparison.AddComparator("results", types.RecordsCSV(path.Join(config.SavePath, "results.csv")))
		comparison.AddComparator("summary", types.SummaryCSV(path.Join(config.SavePath, "summary.csv")))
		if config.Plot {
			comparison.AddComparator("histogram", types.HistogramPlotter(config.SavePath, config.Bins))
		}
	}
	comparison.AddComparator("terminal", types.TerminalSummary(out))

	return comparison.Run(ctx)
}

// runFlags are the flags specific to the run command
type runFlags struct {
	configFile string
	model      explicit.Files
	truth      float64
	truthFile  string
	algorithms string
	cpuprofile string
	memprofile string
}

// buildConfig reads the configuration file, if any, and applies the flags set on the command line
func (f *runFlags) buildConfig(cmd *cobra.Command) (*RunConfig, error) {
	config := DefaultRunConfig()
	if f.configFile != "" {
		var err error
		if config, err = LoadConfig(f.configFile); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("tra") {
		config.Model.Transitions = f.model.Transitions
	}
	if flags.Changed("lab") {
		config.Model.Labels = f.model.Labels
	}
	if flags.Changed("rew") {
		config.Model.Rewards = f.model.Rewards
	}
	if flags.Changed("truth") {
		truth := f.truth
		config.GroundTruth = &truth
	}
	if flags.Changed("truth-file") {
		config.GroundTruth = nil
		config.GroundTruthFile = f.truthFile
	}
	if flags.Changed("algorithms") {
		if err := config.SelectAlgorithms(strings.Split(f.algorithms, ",")); err != nil {
			return nil, err
		}
	}
	if flags.Changed("repetitions") {
		config.Repetitions = repetitions
	}
	if flags.Changed("horizon") {
		config.Horizon = horizon
	}
	if flags.Changed("seed") {
		config.Seed = seed
	}
	if flags.Changed("parallel") {
		config.Parallelism = parallelism
	}
	if flags.Changed("save") {
		config.SavePath = saveFile
	}
	if flags.Changed("bins") {
		config.Bins = bins
	}
	if flags.Changed("record-traces") {
		config.RecordTraces = recordTraces
	}
	if flags.Changed("plot") {
		config.Plot = plotHistograms
	}
	if flags.Changed("quiet") {
		config.Quiet = quiet
	}
	return config, nil
}

func RunCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run DiffQL and RVIQL on an explicit MDP and compare with the ground truth",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := f.buildConfig(cmd)
			if err != nil {
				return err
			}
			stopProfiling, err := startProfiling(config.SavePath, f.cpuprofile, f.memprofile)
			if err != nil {
				return err
			}
			defer stopProfiling()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			defer signal.Stop(sigCh)

			doneCh := make(chan struct{})
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-sigCh:
					glog.Warning("interrupted, stopping the repetitions")
				case <-doneCh:
				}
				cancel()
			}()

			_, err = RunBenchmark(ctx, config, cmd.OutOrStdout())
			close(doneCh)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.configFile, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&f.model.Transitions, "tra", "", "Transition file (.tra)")
	cmd.Flags().StringVar(&f.model.Labels, "lab", "", "Label file (.lab)")
	cmd.Flags().StringVar(&f.model.Rewards, "rew", "", "Reward file (.rew)")
	cmd.Flags().Float64Var(&f.truth, "truth", 0, "Long-run average reward computed by the model checker")
	cmd.Flags().StringVar(&f.truthFile, "truth-file", "", "Model checker output containing the long-run average reward")
	cmd.Flags().StringVar(&f.algorithms, "algorithms", "diffql,rviql", "Comma separated algorithms to run")
	cmd.Flags().StringVar(&f.cpuprofile, "cpuprofile", "", "Write a CPU profile to this file in the save folder")
	cmd.Flags().StringVar(&f.memprofile, "memprofile", "", "Write a memory profile to this file in the save folder")
	cmd.MarkFlagsMutuallyExclusive("truth", "truth-file")
	return cmd
}
