package world

import "fmt"

// AccessState is the instantaneous mode of a wrapper's shared cell.
type AccessState string

// Access states for a wrapper's cell
const (
	StateIdle     AccessState = "idle"     // no view or mutation active
	StateReading  AccessState = "reading"  // one or more read views active
	StateMutating AccessState = "mutating" // exactly one mutation running
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[AccessState]map[AccessState]bool{
	StateIdle: {
		StateReading:  true, // Idle → Reading (first read view acquired)
		StateMutating: true, // Idle → Mutating (mutation acquired; readers drained)
	},
	StateReading: {
		StateReading: true, // Reading → Reading (view added or released, n stays ≥ 1)
		StateIdle:    true, // Reading → Idle (last read view released)
	},
	StateMutating: {
		StateIdle: true, // Mutating → Idle (mutation completed or aborted)
	},
}

// ValidateTransition checks if an access state transition is valid.
// Mutating is never entered from Reading: a queued mutation waits for
// the cell to pass through Idle first.
func ValidateTransition(from, to AccessState) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown access state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsQuiescent returns true if no access is in flight in the given state
func IsQuiescent(s AccessState) bool {
	return s == StateIdle
}
