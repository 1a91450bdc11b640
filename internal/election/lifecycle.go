// Package election contains the pure election-lifecycle state function.
// The evaluation instant is always passed in explicitly so classification is
// deterministic under test.
package election

import "time"

// State is the lifecycle state of an election at a given instant.
type State string

const (
	// Inactive: the activity flag is off. Overrides all time checks.
	Inactive State = "inactive"
	// Scheduled: active, but the voting window has not opened yet.
	Scheduled State = "scheduled"
	// Open: active and inside the voting window. Only this state accepts votes.
	Open State = "open"
	// Closed: active, but the voting window has passed.
	Closed State = "closed"
)

// Window is the subset of an election the classifier needs.
type Window struct {
	IsActive  bool
	StartDate time.Time
	EndDate   time.Time
}

// Classify returns exactly one state for every combination of activity flag,
// window and instant. The window bounds are inclusive on both ends.
func Classify(w Window, now time.Time) State {
	if !w.IsActive {
		return Inactive
	}
	if now.Before(w.StartDate) {
		return Scheduled
	}
	if now.After(w.EndDate) {
		return Closed
	}
	return Open
}

// IsOpen reports whether the election accepts votes at the given instant.
func IsOpen(w Window, now time.Time) bool {
	return Classify(w, now) == Open
}
