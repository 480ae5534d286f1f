package explicit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write serializes the model in the explicit format. Rewards are written
// as transition rewards and only when non zero; rew may be nil to skip
// them. Initial states are always labelled init.
func Write(m *MDP, tra, lab, rew io.Writer) error {
	traW := bufio.NewWriter(tra)
	fmt.Fprintln(traW, "mdp")
	for _, s := range m.states {
		for _, c := range m.choices[s] {
			for _, b := range c.Branches {
				fmt.Fprintf(traW, "%d %d %d %s\n", s, c.Action, b.Dest, formatFloat(b.Prob))
			}
		}
	}
	if err := traW.Flush(); err != nil {
		return err
	}

	if lab != nil {
		if err := writeLabels(m, lab); err != nil {
			return err
		}
	}

	if rew != nil {
		rewW := bufio.NewWriter(rew)
		for _, s := range m.states {
			for _, c := range m.choices[s] {
				for _, b := range c.Branches {
					if b.Reward != 0 {
						fmt.Fprintf(rewW, "%d %d %d %s\n", s, c.Action, b.Dest, formatFloat(b.Reward))
					}
				}
			}
		}
		if err := rewW.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func writeLabels(m *MDP, lab io.Writer) error {
	declared := m.DeclaredLabels()
	hasInit := false
	for _, l := range declared {
		if l == InitLabel {
			hasInit = true
		}
	}
	if !hasInit {
		declared = append([]string{InitLabel}, declared...)
	}

	initial := make(map[int]bool)
	for _, s := range m.initial {
		initial[int(s)] = true
	}

	labW := bufio.NewWriter(lab)
	fmt.Fprintln(labW, "#DECLARATION")
	fmt.Fprintln(labW, strings.Join(declared, " "))
	fmt.Fprintln(labW, "#END")
	for _, s := range m.states {
		labels := m.Labels(s)
		if initial[int(s)] && !contains(labels, InitLabel) {
			labels = append([]string{InitLabel}, labels...)
		}
		if len(labels) == 0 {
			continue
		}
		fmt.Fprintf(labW, "%d %s\n", s, strings.Join(labels, " "))
	}
	return labW.Flush()
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// WriteFiles writes the model to prefix.tra, prefix.lab and prefix.trans.rew
func WriteFiles(m *MDP, prefix string) (Files, error) {
	files := Files{
		Transitions: prefix + ".tra",
		Labels:      prefix + ".lab",
		Rewards:     prefix + ".trans.rew",
	}
	tra, err := os.Create(files.Transitions)
	if err != nil {
		return files, err
	}
	defer tra.Close()
	lab, err := os.Create(files.Labels)
	if err != nil {
		return files, err
	}
	defer lab.Close()
	rew, err := os.Create(files.Rewards)
	if err != nil {
		return files, err
	}
	defer rew.Close()

	return files, Write(m, tra, lab, rew)
}
