package state

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func mustNew(t *testing.T, data map[string]any) *Vector {
	t.Helper()
	v, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNewRejectsNonMapping(t *testing.T) {
	for _, bad := range []any{"text", 42, []any{1, 2}, true} {
		if _, err := New(bad); !errors.Is(err, ErrContractViolation) {
			t.Fatalf("New(%v): expected ErrContractViolation, got %v", bad, err)
		}
	}
}

func TestNewNilMeansEmpty(t *testing.T) {
	v, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil): %v", err)
	}
	if v.Data == nil || len(v.Data) != 0 {
		t.Fatalf("expected empty data, got %v", v.Data)
	}
	if v.Amplitude != 1.0 || v.Probability != 1.0 {
		t.Fatalf("expected unit weights, got a=%v p=%v", v.Amplitude, v.Probability)
	}
}

func TestUpdateDoesNotMutateOriginal(t *testing.T) {
	v0 := mustNew(t, map[string]any{"x": 1})
	v1 := v0.Update(map[string]any{"x": 2, "y": 5})

	if !reflect.DeepEqual(v1.Data, map[string]any{"x": 2, "y": 5}) {
		t.Fatalf("updated data = %v", v1.Data)
	}
	if !reflect.DeepEqual(v0.Data, map[string]any{"x": 1}) {
		t.Fatalf("original data mutated: %v", v0.Data)
	}
	if v1.ID == v0.ID {
		t.Fatal("update must mint a new id")
	}
	if v1.Collapsed {
		t.Fatal("update must clear collapsed")
	}
}

func TestUpdateKeepsWeights(t *testing.T) {
	v0 := mustNew(t, nil)
	v0.Amplitude = 0.5
	v0.Probability = 0.25

	v1 := v0.Update(map[string]any{"k": 1})
	if v1.Amplitude != 0.5 || v1.Probability != 0.25 {
		t.Fatalf("weights changed: a=%v p=%v", v1.Amplitude, v1.Probability)
	}
}

func TestMergeWeightCommutativityDataNot(t *testing.T) {
	a := mustNew(t, map[string]any{"k": "from-a", "only_a": 1})
	a.Amplitude, a.Probability = 0.8, 0.5
	b := mustNew(t, map[string]any{"k": "from-b", "only_b": 2})
	b.Amplitude, b.Probability = 0.6, 0.4

	ab := a.MergeWith(b)
	ba := b.MergeWith(a)

	if math.Abs(ab.Amplitude-ba.Amplitude) > 1e-12 {
		t.Fatalf("amplitude not commutative: %v vs %v", ab.Amplitude, ba.Amplitude)
	}
	if math.Abs(ab.Probability-ba.Probability) > 1e-12 {
		t.Fatalf("probability not commutative: %v vs %v", ab.Probability, ba.Probability)
	}
	if ab.Data["k"] != "from-b" || ba.Data["k"] != "from-a" {
		t.Fatalf("precedence direction wrong: ab=%v ba=%v", ab.Data["k"], ba.Data["k"])
	}
	if reflect.DeepEqual(ab.Data, ba.Data) {
		t.Fatal("merge data must not commute on conflicting keys")
	}
}

func TestMergeClampsWeights(t *testing.T) {
	a := mustNew(t, nil)
	a.Amplitude, a.Probability = math.Inf(1), 2.0
	b := mustNew(t, nil)
	b.Amplitude, b.Probability = 2.0, 3.0

	m := a.MergeWith(b)
	if math.IsInf(m.Amplitude, 1) || m.Amplitude < 0 {
		t.Fatalf("amplitude not clamped: %v", m.Amplitude)
	}
	if m.Probability != 1.0 {
		t.Fatalf("probability not clamped to 1: %v", m.Probability)
	}
}

func TestObserveCollapsesAndReads(t *testing.T) {
	v := mustNew(t, map[string]any{"n": 2, "m": 3})

	full, ok := v.Observe("")
	if !ok {
		t.Fatal("full observe must report present")
	}
	if !reflect.DeepEqual(full, map[string]any{"n": 2, "m": 3}) {
		t.Fatalf("full observe = %v", full)
	}
	if !v.Collapsed {
		t.Fatal("observe must collapse")
	}

	val, ok := v.Observe("n")
	if !ok || val != 2 {
		t.Fatalf("Observe(n) = %v, %v", val, ok)
	}

	// Missing key is absence, not an error, and collapse stays set.
	val, ok = v.Observe("missing")
	if ok || val != nil {
		t.Fatalf("Observe(missing) = %v, %v", val, ok)
	}
	if !v.Collapsed {
		t.Fatal("collapse is irreversible")
	}
}

func TestComputeDelta(t *testing.T) {
	v0 := mustNew(t, map[string]any{"a": map[string]any{"n": 1, "m": 2}})
	v1 := mustNew(t, map[string]any{"a": map[string]any{"n": 1, "m": 3}, "b": 4})

	got := v0.ComputeDelta(v1)
	want := map[string]any{"a": map[string]any{"m": 3}, "b": 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ComputeDelta = %v, want %v", got, want)
	}
}

func TestClampHelpers(t *testing.T) {
	if got := ClampAmplitude(math.NaN()); got != 0 {
		t.Fatalf("ClampAmplitude(NaN) = %v", got)
	}
	if got := ClampAmplitude(-1); got != 0 {
		t.Fatalf("ClampAmplitude(-1) = %v", got)
	}
	if got := ClampAmplitude(math.Inf(1)); got != math.MaxFloat64 {
		t.Fatalf("ClampAmplitude(+Inf) = %v", got)
	}
	if got := ClampProbability(1.5); got != 1 {
		t.Fatalf("ClampProbability(1.5) = %v", got)
	}
	if got := ClampProbability(math.NaN()); got != 0 {
		t.Fatalf("ClampProbability(NaN) = %v", got)
	}
}
