package types

// Policy learns while choosing the actions of an agent
type Policy interface {
	// NextAction picks one of the enabled actions of the state
	NextAction(step int, state State, actions []Action) (Action, error)
	// Update with the observed transition. actions are the enabled
	// actions of state and nextActions those of nextState.
	Update(step int, state State, actions []Action, action Action, reward float64, nextState State, nextActions []Action) error
	// Gain is the current estimate of the long-run average reward
	Gain() float64
	// Record the learned values to the file at path
	Record(path string) error
}

// PolicyCtor creates a fresh policy for a single repetition
type PolicyCtor func(seed uint64) (Policy, error)
