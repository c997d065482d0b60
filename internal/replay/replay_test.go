package replay

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/metamindiq/quantum-sync/internal/codec"
	"github.com/metamindiq/quantum-sync/internal/registry"
)

func sessionSnapshots() []codec.Snapshot {
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return []codec.Snapshot{
		{ID: "v0", Timestamp: t0, Data: map[string]any{"score": 0.0, "level": map[string]any{"n": 1.0}}},
		{ID: "v1", Timestamp: t0.Add(time.Second), Data: map[string]any{"score": 10.0, "level": map[string]any{"n": 1.0}}},
		{ID: "v2", Timestamp: t0.Add(2 * time.Second), Data: map[string]any{"score": 10.0, "level": map[string]any{"n": 2.0}, "bonus": true}},
	}
}

func TestFromSnapshots(t *testing.T) {
	f, err := FromSnapshots("session", sessionSnapshots())
	if err != nil {
		t.Fatalf("FromSnapshots: %v", err)
	}
	if len(f.Steps) != 2 {
		t.Fatalf("steps = %d", len(f.Steps))
	}
	if !reflect.DeepEqual(f.Steps[0].Delta, map[string]any{"score": 10.0}) {
		t.Fatalf("step 0 = %v", f.Steps[0].Delta)
	}
	want1 := map[string]any{"level": map[string]any{"n": 2.0}, "bonus": true}
	if !reflect.DeepEqual(f.Steps[1].Delta, want1) {
		t.Fatalf("step 1 = %v", f.Steps[1].Delta)
	}
}

func TestFromSnapshotsEmpty(t *testing.T) {
	if _, err := FromSnapshots("empty", nil); err == nil {
		t.Fatal("expected error for empty session")
	}
}

func TestReplayReachesTerminalData(t *testing.T) {
	snaps := sessionSnapshots()
	f, err := FromSnapshots("session", snaps)
	if err != nil {
		t.Fatalf("FromSnapshots: %v", err)
	}

	reg := registry.New(registry.Options{})
	res, err := Replay(f, reg)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if res.Diverged {
		t.Fatalf("replay diverged: got %v, want %v", res.FinalData, f.ExpectedData)
	}
	if res.Steps != 2 {
		t.Fatalf("steps = %d", res.Steps)
	}
	if !reflect.DeepEqual(res.FinalData, snaps[len(snaps)-1].Data) {
		t.Fatalf("final data = %v", res.FinalData)
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	f := &Fixture{
		Initial:      map[string]any{"x": 1.0},
		Steps:        []Step{{Delta: map[string]any{"x": 2.0}}},
		ExpectedData: map[string]any{"x": 99.0},
	}
	res, err := Replay(f, registry.New(registry.Options{}))
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !res.Diverged {
		t.Fatal("expected divergence")
	}
}

func TestFixtureRoundTripFile(t *testing.T) {
	f, err := FromSnapshots("session", sessionSnapshots())
	if err != nil {
		t.Fatalf("FromSnapshots: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if back.Description != f.Description || len(back.Steps) != len(f.Steps) {
		t.Fatalf("fixture round trip lost data: %+v", back)
	}
	if !reflect.DeepEqual(back.ExpectedData, f.ExpectedData) {
		t.Fatalf("expected data = %v", back.ExpectedData)
	}
}
