package benchmarks

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeu5/avgrl-bench/explicit"
)

func InspectCommand() *cobra.Command {
	var files explicit.Files
	var truthFile string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse an explicit MDP and print its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := explicit.ParseFiles(files)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, m.Printable())
			s, a := m.DefaultReference()
			fmt.Fprintf(out, "Reference: (%d, %d)\n", s, a)
			if truthFile != "" {
				truth, err := explicit.ReadGroundTruthFile(truthFile)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Ground truth: %v\n", truth)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&files.Transitions, "tra", "", "Transition file (.tra)")
	cmd.Flags().StringVar(&files.Labels, "lab", "", "Label file (.lab)")
	cmd.Flags().StringVar(&files.Rewards, "rew", "", "Reward file (.rew)")
	cmd.Flags().StringVar(&truthFile, "truth-file", "", "Model checker output containing the long-run average reward")
	cmd.MarkFlagRequired("tra")
	return cmd
}
