package replay

import (
	"fmt"
	"reflect"

	"github.com/metamindiq/quantum-sync/internal/registry"
)

// #region types

// Result captures the outcome of replaying one fixture.
type Result struct {
	Steps          int
	FinalVersionID string
	FinalData      map[string]any

	// Diverged is set when the fixture pinned an expected terminal mapping
	// and the replayed data does not match it.
	Diverged bool
}

// #endregion types

// #region replay

// Replay applies a fixture's delta steps through a fresh registry, turn by
// turn, entirely in memory. The engine's update rule is deterministic over
// data, so replaying a recorded session must land on the recorded terminal
// mapping.
func Replay(f *Fixture, reg *registry.Registry) (Result, error) {
	node, err := reg.CreateState(f.Initial)
	if err != nil {
		return Result{}, fmt.Errorf("replay initial state: %w", err)
	}

	for i, step := range f.Steps {
		next, err := reg.UpdateState(node.ID, step.Delta)
		if err != nil {
			return Result{}, fmt.Errorf("replay step %d: %w", i, err)
		}
		node = next
	}

	res := Result{
		Steps:          len(f.Steps),
		FinalVersionID: node.ID,
		FinalData:      node.Data,
	}
	if f.ExpectedData != nil && !reflect.DeepEqual(node.Data, f.ExpectedData) {
		res.Diverged = true
	}
	return res, nil
}

// #endregion replay
