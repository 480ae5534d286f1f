package benchmarks

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zeu5/avgrl-bench/explicit"
	"github.com/zeu5/avgrl-bench/policies"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingGroundTruth = errors.New("ground truth not specified, use --truth or --truth-file")
	ErrInvalidConfig      = errors.New("invalid benchmark configuration")
)

// RunConfig of the run command. It is read from an optional YAML file and
// the command line flags override the values of the file.
type RunConfig struct {
	Model           explicit.Files `yaml:"model"`
	GroundTruth     *float64       `yaml:"ground_truth"`
	GroundTruthFile string         `yaml:"ground_truth_file"`

	Repetitions int     `yaml:"repetitions"`
	Horizon     int     `yaml:"horizon"`
	Seed        uint64  `yaml:"seed"`
	Parallelism int     `yaml:"parallelism"`
	Bins        int     `yaml:"bins"`
	Confidence  float64 `yaml:"confidence"`

	SavePath     string `yaml:"save"`
	RecordTraces bool   `yaml:"record_traces"`
	RecordPolicy bool   `yaml:"record_policy"`
	Plot         bool   `yaml:"plot"`
	Quiet        bool   `yaml:"quiet"`

	Algorithms []policies.Config `yaml:"algorithms"`
}

func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Repetitions: 1000,
		Horizon:     100000,
		Parallelism: 1,
		Bins:        20,
		Confidence:  0.95,
		SavePath:    "results",
		Algorithms: []policies.Config{
			policies.DefaultConfig(policies.AlgorithmDiffQL),
			policies.DefaultConfig(policies.AlgorithmRVIQL),
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults
func LoadConfig(path string) (*RunConfig, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultRunConfig()
	if err := yaml.Unmarshal(bs, config); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, path, err)
	}
	for i, a := range config.Algorithms {
		config.Algorithms[i] = withDefaults(a)
	}
	return config, nil
}

// withDefaults fills the fields a configuration file left out
func withDefaults(c policies.Config) policies.Config {
	d := policies.DefaultConfig(c.Algorithm)
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Alpha.Kind == "" {
		c.Alpha = d.Alpha
	}
	if c.Beta.Kind == "" {
		c.Beta = d.Beta
	}
	if c.Epsilon.Kind == "" {
		c.Epsilon = d.Epsilon
	}
	if c.Exploration == "" {
		c.Exploration = d.Exploration
	}
	if c.Temperature.Kind == "" {
		c.Temperature = d.Temperature
	}
	if c.AlphaIndex == "" {
		c.AlphaIndex = d.AlphaIndex
	}
	if c.GainUpdate == "" && c.Algorithm == policies.AlgorithmDiffQL {
		c.GainUpdate = d.GainUpdate
	}
	if c.DivergenceBound == 0 {
		c.DivergenceBound = d.DivergenceBound
	}
	return c
}

// SelectAlgorithms keeps the learners named in names, in that order. A
// name without a configured learner gets the default configuration of
// the algorithm with that name.
func (c *RunConfig) SelectAlgorithms(names []string) error {
	selected := make([]policies.Config, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, a := range c.Algorithms {
			if a.Name == name {
				selected = append(selected, a)
				found = true
				break
			}
		}
		if found {
			continue
		}
		switch alg := policies.Algorithm(name); alg {
		case policies.AlgorithmDiffQL, policies.AlgorithmRVIQL:
			selected = append(selected, policies.DefaultConfig(alg))
		default:
			return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, name)
		}
	}
	c.Algorithms = selected
	return nil
}

// ResolveGroundTruth returns the configured value or reads it from the model checker output
func (c *RunConfig) ResolveGroundTruth() (float64, error) {
	if c.GroundTruth != nil {
		return *c.GroundTruth, nil
	}
	if c.GroundTruthFile != "" {
		return explicit.ReadGroundTruthFile(c.GroundTruthFile)
	}
	return 0, ErrMissingGroundTruth
}

// Validate the parts of the configuration that do not depend on the model
func (c *RunConfig) Validate() error {
	switch {
	case c.Model.Transitions == "":
		return fmt.Errorf("%w: transition file not specified", ErrInvalidConfig)
	case c.GroundTruth == nil && c.GroundTruthFile == "":
		return ErrMissingGroundTruth
	case c.Repetitions <= 0:
		return fmt.Errorf("%w: repetitions must be positive, got %d", ErrInvalidConfig, c.Repetitions)
	case c.Horizon <= 0:
		return fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidConfig, c.Horizon)
	case c.Parallelism <= 0:
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidConfig, c.Parallelism)
	case c.Bins <= 0:
		return fmt.Errorf("%w: bins must be positive, got %d", ErrInvalidConfig, c.Bins)
	case c.Confidence <= 0 || c.Confidence >= 1:
		return fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidConfig, c.Confidence)
	case len(c.Algorithms) == 0:
		return fmt.Errorf("%w: no algorithm selected", ErrInvalidConfig)
	case (c.RecordTraces || c.RecordPolicy || c.Plot) && c.SavePath == "":
		return fmt.Errorf("%w: recording requires a save path", ErrInvalidConfig)
	}
	names := make(map[string]bool)
	for _, a := range c.Algorithms {
		if names[a.Name] {
			return fmt.Errorf("%w: duplicate algorithm name %q", ErrInvalidConfig, a.Name)
		}
		names[a.Name] = true
	}
	return nil
}

// learners completes the learner configurations for the model: RVI
// Q-learning subtracts the default reference pair unless one is
// configured, a configured pair must be enabled in the model.
func (c *RunConfig) learners(m *explicit.MDP) ([]policies.Config, error) {
	learners := make([]policies.Config, len(c.Algorithms))
	for i, a := range c.Algorithms {
		if a.Algorithm == policies.AlgorithmRVIQL {
			if a.Reference == nil {
				s, act := m.DefaultReference()
				a.Reference = &policies.Reference{State: s, Action: act}
			} else if !m.Enabled(a.Reference.State, a.Reference.Action) {
				return nil, fmt.Errorf("%w: %s: reference pair (%d, %d) is not a choice of %s",
					ErrInvalidConfig, a.Name, a.Reference.State, a.Reference.Action, m.Name())
			}
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", a.Name, err)
		}
		learners[i] = a
	}
	return learners, nil
}

func describeLearner(a policies.Config) string {
	exploration := fmt.Sprintf("epsilon=%s", a.Epsilon)
	if a.Exploration == policies.ExploreSoftmax {
		exploration = fmt.Sprintf("softmax temperature=%s", a.Temperature)
	}
	s := fmt.Sprintf("%s: %s alpha=%s (per %s) %s initial=%v",
		a.Name, a.Algorithm, a.Alpha, a.AlphaIndex, exploration, a.InitialValue)
	switch a.Algorithm {
	case policies.AlgorithmDiffQL:
		s += fmt.Sprintf(" beta=%s gain=%s initial_gain=%v", a.Beta, a.GainUpdate, a.InitialGain)
	case policies.AlgorithmRVIQL:
		if a.Reference != nil {
			s += fmt.Sprintf(" reference=(%d, %d)", a.Reference.State, a.Reference.Action)
		}
	}
	return s
}

// Printable form of the configuration
func (c *RunConfig) Printable() string {
	truth := c.GroundTruthFile
	if c.GroundTruth != nil {
		truth = fmt.Sprintf("%v", *c.GroundTruth)
	}
	lines := []string{
		fmt.Sprintf("Model: %s (labels: %s, rewards: %s)", c.Model.Transitions, c.Model.Labels, c.Model.Rewards),
		fmt.Sprintf("Ground truth: %s", truth),
		fmt.Sprintf("Repetitions: %d", c.Repetitions),
		fmt.Sprintf("Horizon: %d", c.Horizon),
		fmt.Sprintf("Seed: %d", c.Seed),
		fmt.Sprintf("Parallelism: %d", c.Parallelism),
		fmt.Sprintf("Bins: %d", c.Bins),
		fmt.Sprintf("Confidence: %v", c.Confidence),
		"Algorithms:",
	}
	for _, a := range c.Algorithms {
		lines = append(lines, "  "+describeLearner(a))
	}
	return strings.Join(lines, "\n")
}
