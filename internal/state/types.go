package state

import "time"

// #region vector

// Vector is one immutable version of a state node: a data mapping plus the
// merge-weight metadata used for entanglement notification. Identity is the
// ID alone; two vectors with identical data but different IDs are distinct.
// Data must never be written after construction; every state-changing
// operation returns a new Vector instead.
type Vector struct {
	ID        string
	CreatedAt time.Time

	// Amplitude and Probability are heuristic confidence weights. They are
	// combined multiplicatively on merge and entanglement notification and
	// clamped to stay finite and non-negative. This is a coupled confidence
	// decay heuristic, not a probability update.
	Amplitude   float64
	Probability float64

	// Collapsed marks the vector as having been read. Observe sets it;
	// nothing clears it.
	Collapsed bool

	Data map[string]any
}

// #endregion vector

// #region observable

// Observable computes a derived value from a vector's data mapping. It is
// evaluated lazily on Observe. Observables are process-local closures and
// are excluded from serialization.
type Observable func(data map[string]any) any

// #endregion observable
