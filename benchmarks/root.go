package benchmarks

import (
	"flag"

	"github.com/spf13/cobra"
)

var (
	repetitions    int
	horizon        int
	seed           uint64
	parallelism    int
	saveFile       string
	bins           int
	recordTraces   bool
	plotHistograms bool
	quiet          bool
)

func GetRootCommand() *cobra.Command {
	defaults := DefaultRunConfig()
	rootCommand := &cobra.Command{
		Use:          "avgrl",
		Short:        "Benchmark average-reward Q-learning against model checker ground truth",
		SilenceUsage: true,
	}
	rootCommand.PersistentFlags().IntVarP(&repetitions, "repetitions", "r", defaults.Repetitions, "Number of independent repetitions per algorithm")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", defaults.Horizon, "Steps of each repetition")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", defaults.Seed, "Base seed, repetition i uses seed+i")
	rootCommand.PersistentFlags().IntVarP(&parallelism, "parallel", "p", defaults.Parallelism, "Repetitions running at the same time")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", defaults.SavePath, "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&bins, "bins", defaults.Bins, "Histogram bins of the final estimates")
	rootCommand.PersistentFlags().BoolVar(&recordTraces, "record-traces", false, "Record the trajectory of every repetition")
	rootCommand.PersistentFlags().BoolVar(&plotHistograms, "plot", false, "Plot the histogram of the final estimates")
	rootCommand.PersistentFlags().BoolVar(&quiet, "quiet", false, "Do not print the live progress")
	// glog flags
	rootCommand.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// adding the subcommands here
	rootCommand.AddCommand(RunCommand())
	rootCommand.AddCommand(InspectCommand())
	rootCommand.AddCommand(GenerateCommand())
	return rootCommand
}
