package state

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/metamindiq/quantum-sync/internal/delta"
)

// #region constructor

// New creates a fresh vector from untyped input. A nil value means an empty
// mapping; anything other than a map[string]any is ErrContractViolation.
func New(data any) (*Vector, error) {
	var m map[string]any
	switch v := data.(type) {
	case nil:
		m = map[string]any{}
	case map[string]any:
		m = v
		if m == nil {
			m = map[string]any{}
		}
	default:
		return nil, ErrContractViolation
	}

	return &Vector{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Amplitude:   1.0,
		Probability: 1.0,
		Data:        m,
	}, nil
}

// #endregion constructor

// #region update

// Update derives a new vector by applying patch over the current data with
// the right-biased one-level merge rule. The result carries the same
// weights, a fresh id and timestamp, and Collapsed cleared. Entanglement
// inheritance and neighbor notification belong to the registry.
func (v *Vector) Update(patch map[string]any) *Vector {
	return &Vector{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Amplitude:   v.Amplitude,
		Probability: v.Probability,
		Data:        delta.Merge(v.Data, patch),
	}
}

// #endregion update

// #region merge

// MergeWith combines two vectors into a new one. Data merges one level deep
// with other's values winning on conflict, so MergeWith is not commutative
// over data. Amplitude and probability multiply, which is commutative, then
// clamp. Collapsed is cleared.
func (v *Vector) MergeWith(other *Vector) *Vector {
	return &Vector{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Amplitude:   ClampAmplitude(v.Amplitude * other.Amplitude),
		Probability: ClampProbability(v.Probability * other.Probability),
		Data:        delta.Merge(v.Data, other.Data),
	}
}

// #endregion merge

// #region observe

// Observe marks the vector as collapsed and reads from it. An empty key
// returns the full data mapping; a missing key returns (nil, false), never
// an error. Collapse is idempotent and irreversible.
func (v *Vector) Observe(key string) (any, bool) {
	v.Collapsed = true
	if key == "" {
		return v.Data, true
	}
	val, ok := v.Data[key]
	return val, ok
}

// #endregion observe

// #region compute-delta

// ComputeDelta returns the structural diff of this vector's data against
// other's data. Keys removed between the two are not reported.
func (v *Vector) ComputeDelta(other *Vector) map[string]any {
	return delta.Diff(v.Data, other.Data)
}

// #endregion compute-delta

// #region clamp

// ClampAmplitude keeps an amplitude finite and non-negative after repeated
// multiplication. NaN and negative values clamp to 0, +Inf to MaxFloat64.
func ClampAmplitude(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if math.IsInf(f, 1) {
		return math.MaxFloat64
	}
	return f
}

// ClampProbability keeps a probability inside [0, 1]. NaN clamps to 0.
func ClampProbability(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// #endregion clamp
