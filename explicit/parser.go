package explicit

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeu5/avgrl-bench/types"
)

// Files locates the explicit model files of one MDP. Labels and
// Rewards are optional.
type Files struct {
	Transitions string `yaml:"transitions" json:"transitions"`
	Labels      string `yaml:"labels" json:"labels,omitempty"`
	Rewards     string `yaml:"rewards" json:"rewards,omitempty"`
}

// Name of the model, the transition file name without extension
func (f Files) Name() string {
	base := filepath.Base(f.Transitions)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseFiles reads and validates the model described by files
func ParseFiles(files Files) (*MDP, error) {
	if files.Transitions == "" {
		return nil, fmt.Errorf("transition file not specified")
	}
	p := &parser{
		traFile: files.Transitions,
		labFile: files.Labels,
		rewFile: files.Rewards,
	}

	tra, err := os.Open(files.Transitions)
	if err != nil {
		return nil, err
	}
	defer tra.Close()

	var lab, rew io.Reader
	if files.Labels != "" {
		f, err := os.Open(files.Labels)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		lab = f
	}
	if files.Rewards != "" {
		f, err := os.Open(files.Rewards)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rew = f
	}
	return p.parse(files.Name(), tra, lab, rew)
}

// Parse reads the model from the transition, label and reward contents.
// lab and rew may be nil. Errors name the files as <name>.tra,
// <name>.lab and <name>.rew.
func Parse(name string, tra, lab, rew io.Reader) (*MDP, error) {
	p := &parser{
		traFile: name + ".tra",
		labFile: name + ".lab",
		rewFile: name + ".rew",
	}
	return p.parse(name, tra, lab, rew)
}

type parser struct {
	traFile string
	labFile string
	rewFile string
}

type line struct {
	number int
	fields []string
}

// scanLines returns the non empty, non comment lines split into fields
func scanLines(r io.Reader, file string) ([]line, error) {
	lines := make([]line, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	number := 0
	for scanner.Scan() {
		number++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") && !strings.HasPrefix(text, "#DECLARATION") && !strings.HasPrefix(text, "#END") {
			continue
		}
		lines = append(lines, line{number: number, fields: strings.Fields(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return lines, nil
}

func (p *parser) parse(name string, tra, lab, rew io.Reader) (*MDP, error) {
	m := &MDP{
		name:     name,
		choices:  make(map[types.State][]Choice),
		labels:   make(map[types.State][]string),
		declared: make([]string, 0),
	}
	if err := p.parseTransitions(m, tra); err != nil {
		return nil, err
	}
	if err := m.validate(p.traFile); err != nil {
		return nil, err
	}
	if rew != nil {
		if err := p.parseRewards(m, rew); err != nil {
			return nil, err
		}
	}
	if lab != nil {
		if err := p.parseLabels(m, lab); err != nil {
			return nil, err
		}
		m.initial = nil
		if err := m.validate(p.labFile); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseState(file string, l line, field string) (types.State, error) {
	v, err := strconv.Atoi(field)
	if err != nil || v < 0 {
		return 0, formatErrorf(file, l.number, "invalid state %q", field)
	}
	return types.State(v), nil
}

func parseAction(file string, l line, field string) (types.Action, error) {
	v, err := strconv.Atoi(field)
	if err != nil || v < 0 {
		return 0, formatErrorf(file, l.number, "invalid action %q", field)
	}
	return types.Action(v), nil
}

func parseFloat(file string, l line, field, what string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, formatErrorf(file, l.number, "invalid %s %q", what, field)
	}
	return v, nil
}

// headerToken reports whether the line is a model type header such as "mdp"
func headerToken(l line) (string, bool) {
	if len(l.fields) != 1 {
		return "", false
	}
	if _, err := strconv.ParseFloat(l.fields[0], 64); err == nil {
		return "", false
	}
	return strings.ToLower(l.fields[0]), true
}

func (p *parser) parseTransitions(m *MDP, r io.Reader) error {
	lines, err := scanLines(r, p.traFile)
	if err != nil {
		return err
	}
	fields := 4
	if len(lines) > 0 {
		if header, ok := headerToken(lines[0]); ok {
			switch header {
			case "mdp":
			case "dtmc":
				fields = 3
			default:
				return formatErrorf(p.traFile, lines[0].number, "unsupported model type %q", lines[0].fields[0])
			}
			lines = lines[1:]
		}
	}

	type key struct {
		s types.State
		a types.Action
		d types.State
	}
	seen := make(map[key]bool)
	for _, l := range lines {
		if len(l.fields) != fields {
			return formatErrorf(p.traFile, l.number, "expected %d fields, got %d", fields, len(l.fields))
		}
		s, err := parseState(p.traFile, l, l.fields[0])
		if err != nil {
			return err
		}
		a := types.Action(0)
		rest := l.fields[1:]
		if fields == 4 {
			a, err = parseAction(p.traFile, l, l.fields[1])
			if err != nil {
				return err
			}
			rest = l.fields[2:]
		}
		d, err := parseState(p.traFile, l, rest[0])
		if err != nil {
			return err
		}
		prob, err := parseFloat(p.traFile, l, rest[1], "probability")
		if err != nil {
			return err
		}
		if prob <= 0 || prob > 1+ProbabilityTolerance {
			return formatErrorf(p.traFile, l.number, "probability %v out of range", prob)
		}
		k := key{s, a, d}
		if seen[k] {
			return formatErrorf(p.traFile, l.number, "duplicate transition %d %d %d", s, a, d)
		}
		seen[k] = true

		choices := m.choices[s]
		found := false
		for i := range choices {
			if choices[i].Action == a {
				choices[i].Branches = append(choices[i].Branches, Branch{Dest: d, Prob: prob})
				found = true
				break
			}
		}
		if !found {
			m.choices[s] = append(choices, Choice{Action: a, Branches: []Branch{{Dest: d, Prob: prob}}})
		}
	}
	return nil
}

// parseRewards accepts the three reward layouts of the explicit format,
// one per line: "state reward", "state action reward" and
// "state action dest reward". Rewards of all layouts add up.
func (p *parser) parseRewards(m *MDP, r io.Reader) error {
	lines, err := scanLines(r, p.rewFile)
	if err != nil {
		return err
	}
	if len(lines) > 0 {
		if _, ok := headerToken(lines[0]); ok {
			lines = lines[1:]
		}
	}

	// layout is the number of fields, so "0 1" and "0 1 2" stay distinct keys
	type key struct {
		layout int
		s      types.State
		a      types.Action
		d      types.State
	}
	seen := make(map[key]bool)
	for _, l := range lines {
		if len(l.fields) < 2 || len(l.fields) > 4 {
			return formatErrorf(p.rewFile, l.number, "expected 2 to 4 fields, got %d", len(l.fields))
		}
		k := key{layout: len(l.fields)}
		if k.s, err = parseState(p.rewFile, l, l.fields[0]); err != nil {
			return err
		}
		if len(l.fields) >= 3 {
			if k.a, err = parseAction(p.rewFile, l, l.fields[1]); err != nil {
				return err
			}
		}
		if len(l.fields) == 4 {
			if k.d, err = parseState(p.rewFile, l, l.fields[2]); err != nil {
				return err
			}
		}
		if seen[k] {
			return formatErrorf(p.rewFile, l.number, "duplicate reward for %s", strings.Join(l.fields[:len(l.fields)-1], " "))
		}
		seen[k] = true

		s, a, d := k.s, k.a, k.d
		reward, err := parseFloat(p.rewFile, l, l.fields[len(l.fields)-1], "reward")
		if err != nil {
			return err
		}
		choices, ok := m.choices[s]
		if !ok {
			return formatErrorf(p.rewFile, l.number, "reward for undeclared state %d", s)
		}

		switch len(l.fields) {
		case 2:
			for i := range choices {
				addReward(choices[i].Branches, reward)
			}
		case 3, 4:
			i := choiceIndex(choices, a)
			if i < 0 {
				return formatErrorf(p.rewFile, l.number, "reward for undeclared action %d of state %d", a, s)
			}
			if len(l.fields) == 3 {
				addReward(choices[i].Branches, reward)
				continue
			}
			j := branchIndex(choices[i].Branches, d)
			if j < 0 {
				return formatErrorf(p.rewFile, l.number, "reward for undeclared transition %d %d %d", s, a, d)
			}
			choices[i].Branches[j].Reward += reward
		}
	}
	return nil
}

func addReward(branches []Branch, reward float64) {
	for i := range branches {
		branches[i].Reward += reward
	}
}

func choiceIndex(choices []Choice, a types.Action) int {
	for i, c := range choices {
		if c.Action == a {
			return i
		}
	}
	return -1
}

func branchIndex(branches []Branch, d types.State) int {
	for i, b := range branches {
		if b.Dest == d {
			return i
		}
	}
	return -1
}

func (p *parser) parseLabels(m *MDP, r io.Reader) error {
	lines, err := scanLines(r, p.labFile)
	if err != nil {
		return err
	}
	declared := make(map[string]bool)
	inDeclaration := false
	for _, l := range lines {
		switch {
		case l.fields[0] == "#DECLARATION":
			inDeclaration = true
			for _, name := range l.fields[1:] {
				declared[name] = true
				m.declared = append(m.declared, name)
			}
			continue
		case l.fields[0] == "#END":
			inDeclaration = false
			continue
		case inDeclaration:
			for _, name := range l.fields {
				if !declared[name] {
					declared[name] = true
					m.declared = append(m.declared, name)
				}
			}
			continue
		}

		s, err := parseState(p.labFile, l, strings.TrimSuffix(l.fields[0], ":"))
		if err != nil {
			return err
		}
		if !m.HasState(s) {
			return formatErrorf(p.labFile, l.number, "label for undeclared state %d", s)
		}
		for _, name := range l.fields[1:] {
			if !declared[name] {
				return formatErrorf(p.labFile, l.number, "undeclared label %q", name)
			}
			m.labels[s] = append(m.labels[s], name)
		}
	}
	if inDeclaration {
		return formatErrorf(p.labFile, 0, "missing #END")
	}
	return nil
}
