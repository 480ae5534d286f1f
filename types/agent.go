package types

import (
	"context"
	"fmt"
)

// checked every ctxCheckInterval steps
const ctxCheckInterval = 1024

type AgentConfig struct {
	Horizon     int
	RecordTrace bool
	Policy      Policy
	Environment Environment
}

// Agent steps a policy through an environment for a fixed horizon
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
	trace       *Trace
	visits      *VisitGraph
}

func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
	}
}

// Trace of the last run, nil unless RecordTrace is set
func (a *Agent) Trace() *Trace {
	return a.trace
}

// Visits of the states along the last run
func (a *Agent) Visits() *VisitGraph {
	return a.visits
}

// Run executes Horizon steps and returns the number of completed steps.
// A panic in the policy or environment is reported as an error.
func (a *Agent) Run(ctx context.Context) (steps int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic at step %d: %v", steps, r)
		}
	}()

	if a.config.RecordTrace {
		a.trace = NewTrace()
	}
	a.visits = NewVisitGraph()
	state, err := a.environment.Reset()
	if err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	actions := a.environment.Actions(state)

	for steps = 0; steps < a.config.Horizon; steps++ {
		if steps%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return steps, ctx.Err()
			default:
			}
		}
		action, err := a.policy.NextAction(steps, state, actions)
		if err != nil {
			return steps, err
		}
		nextState, reward, err := a.environment.Step(state, action)
		if err != nil {
			return steps, err
		}
		nextActions := a.environment.Actions(nextState)
		if err := a.policy.Update(steps, state, actions, action, reward, nextState, nextActions); err != nil {
			return steps, err
		}
		a.visits.Update(state, action, nextState)
		if a.trace != nil {
			a.trace.Append(state, action, reward, nextState)
		}
		state = nextState
		actions = nextActions
	}
	return steps, nil
}
