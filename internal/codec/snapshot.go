package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metamindiq/quantum-sync/internal/state"
)

// #region snapshot

// Snapshot is the wire form of a state vector: id, timestamp, collapsed
// flag, and the data mapping, nothing else. Entangled references and
// observable functions are deliberately excluded; edges are process-local
// relations and observables are closures, neither survives a process
// boundary. Callers that transmit snapshots must re-register both after
// Restore.
type Snapshot struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Collapsed bool           `json:"collapsed"`
	Data      map[string]any `json:"data"`
}

// #endregion snapshot

// #region take

// Take captures the serializable part of a vector.
func Take(v *state.Vector) Snapshot {
	return Snapshot{
		ID:        v.ID,
		Timestamp: v.CreatedAt,
		Collapsed: v.Collapsed,
		Data:      v.Data,
	}
}

// #endregion take

// #region restore

// Restore rebuilds a vector from a snapshot. Identity, timestamp, collapsed
// flag and data round-trip; weights reset to 1 and the vector comes back
// with no entanglement and no observables.
func (s Snapshot) Restore() (*state.Vector, error) {
	data := s.Data
	if data == nil {
		data = map[string]any{}
	}
	if s.ID == "" {
		return nil, fmt.Errorf("restore snapshot: %w", state.ErrContractViolation)
	}
	return &state.Vector{
		ID:          s.ID,
		CreatedAt:   s.Timestamp,
		Amplitude:   1.0,
		Probability: 1.0,
		Collapsed:   s.Collapsed,
		Data:        data,
	}, nil
}

// #endregion restore

// #region binary

// MarshalBinary encodes the snapshot as a protobuf Struct. Data values must
// be JSON-like (scalars, mappings, sequences).
func (s Snapshot) MarshalBinary() ([]byte, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"id":        s.ID,
		"timestamp": s.Timestamp.UTC().Format(time.RFC3339Nano),
		"collapsed": s.Collapsed,
		"data":      s.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", s.ID, err)
	}
	return proto.Marshal(payload)
}

// UnmarshalBinary decodes a protobuf-encoded snapshot. Numeric data values
// come back as float64, matching JSON decoding.
func UnmarshalBinary(b []byte) (Snapshot, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(b, &payload); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	m := payload.AsMap()

	var s Snapshot
	id, ok := m["id"].(string)
	if !ok || id == "" {
		return Snapshot{}, fmt.Errorf("decode snapshot: missing id")
	}
	s.ID = id

	if ts, ok := m["timestamp"].(string); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Snapshot{}, fmt.Errorf("decode snapshot %s: bad timestamp: %w", id, err)
		}
		s.Timestamp = parsed
	}
	s.Collapsed, _ = m["collapsed"].(bool)

	if data, ok := m["data"].(map[string]any); ok {
		s.Data = data
	} else {
		s.Data = map[string]any{}
	}
	return s, nil
}

// #endregion binary
