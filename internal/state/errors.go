package state

import "errors"

// ErrNotFound is returned by write-path registry operations when the given
// state id is unknown. Read-path lookups report absence instead of an error.
var ErrNotFound = errors.New("state not found")

// ErrContractViolation is returned when the top-level data supplied at node
// construction is not a mapping. Malformed data fails immediately and is
// never coerced.
var ErrContractViolation = errors.New("state data must be a mapping")
