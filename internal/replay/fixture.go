package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/metamindiq/quantum-sync/internal/codec"
	"github.com/metamindiq/quantum-sync/internal/delta"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: an initial
// data mapping plus the ordered delta steps that rebuilt a session.
type Fixture struct {
	Description string         `json:"description"`
	Initial     map[string]any `json:"initial"`
	Steps       []Step         `json:"steps"`

	// ExpectedData, when present, pins the terminal data mapping.
	ExpectedData map[string]any `json:"expected_data,omitempty"`
}

// Step is one recorded update.
type Step struct {
	Delta map[string]any `json:"delta"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region derive

// FromSnapshots derives a fixture from an archived session: the first
// snapshot's data becomes the initial mapping and each consecutive pair
// contributes one delta step. Snapshots must be in commit order. Because
// the delta codec never reports removed keys, a session whose updates only
// add or change keys replays exactly; removals cannot be expressed.
func FromSnapshots(description string, snaps []codec.Snapshot) (*Fixture, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("derive fixture: no snapshots")
	}

	f := &Fixture{
		Description: description,
		Initial:     snaps[0].Data,
	}
	for i := 1; i < len(snaps); i++ {
		f.Steps = append(f.Steps, Step{
			Delta: delta.Diff(snaps[i-1].Data, snaps[i].Data),
		})
	}
	f.ExpectedData = snaps[len(snaps)-1].Data
	return f, nil
}

// #endregion derive
