package benchmarks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeu5/avgrl-bench/explicit"
)

func GenerateCommand() *cobra.Command {
	config := explicit.RandomConfig{}
	var prefix string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random explicit MDP",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Name = filepath.Base(prefix)
			if cmd.Flags().Changed("seed") {
				config.Seed = seed
			}
			m, err := explicit.Random(config)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(prefix), os.ModePerm); err != nil {
				return err
			}
			files, err := explicit.WriteFiles(m, prefix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, m.Printable())
			fmt.Fprintf(out, "Written %s, %s and %s\n", files.Transitions, files.Labels, files.Rewards)
			return nil
		},
	}
	cmd.Flags().IntVar(&config.States, "states", 10, "Number of states")
	cmd.Flags().IntVar(&config.Actions, "actions", 2, "Maximum number of actions per state")
	cmd.Flags().IntVar(&config.Branches, "branches", 3, "Maximum number of successors per action")
	cmd.Flags().Float64Var(&config.MaxReward, "max-reward", 1, "Rewards are drawn uniformly from [0, max-reward)")
	cmd.Flags().StringVar(&prefix, "out", "random", "Prefix of the written .tra, .lab and .trans.rew files")
	return cmd
}
