package types

// State of the MDP as identified in the explicit model files
type State int

// Action (choice) index, enabled only in the states that declare it
type Action int

// Environment that the learning policies step through.
// Step is stateless with respect to the caller's position so that
// the agent owns the current state.
type Environment interface {
	// Reset called at the start of each repetition
	Reset() (State, error)
	// Step samples the next state and the reward of taking action in state
	Step(State, Action) (State, float64, error)
	// Actions enabled in the state, sorted
	Actions(State) []Action
}

// EnvironmentCtor creates a fresh environment seeded for a single repetition
type EnvironmentCtor func(seed uint64) Environment
