package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metamindiq/quantum-sync/internal/codec"
	"github.com/metamindiq/quantum-sync/internal/delta"
	"github.com/metamindiq/quantum-sync/internal/graph"
	"github.com/metamindiq/quantum-sync/internal/logging"
	"github.com/metamindiq/quantum-sync/internal/state"
)

// #region sink

// Commit describes one accepted write, for provenance sinks.
type Commit struct {
	VersionID string
	ParentID  string
	Op        string // "create" | "update" | "merge"
	CreatedAt time.Time
}

// Sink receives snapshots and commit records as writes are accepted. Sink
// failures never fail the engine call; the engine's own guarantees are
// memory-only.
type Sink interface {
	SaveSnapshot(codec.Snapshot) error
	SaveCommit(Commit) error
}

// #endregion sink

// #region options

// Options configures a Registry.
type Options struct {
	// MaxHistory caps retained versions; 0 keeps everything for the
	// lifetime of the Registry. When the cap is exceeded the oldest
	// non-current versions are evicted from the arena, their edges severed
	// and their observables discarded.
	MaxHistory int

	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger

	// Archive is an optional write-through sink.
	Archive Sink
}

// #endregion options

// #region registry

// Registry is the sole owner of all state vectors in one session: the
// id-to-node arena, the append-only history, the current pointer, the
// entanglement graph and the observable side table. Every mutating
// operation runs inside one critical section so the current pointer always
// reflects the latest accepted write under concurrent callers. There is no
// hidden global instance; callers construct and pass their own.
type Registry struct {
	mu          sync.Mutex
	sessionID   string
	nodes       map[string]*state.Vector
	history     []string
	currentID   string
	graph       *graph.Graph
	observables map[string]map[string]state.Observable
	opts        Options
	logger      *slog.Logger
}

// New creates an empty Registry for a fresh session.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Registry{
		sessionID:   uuid.NewString(),
		nodes:       map[string]*state.Vector{},
		graph:       graph.New(),
		observables: map[string]map[string]state.Observable{},
		opts:        opts,
		logger:      logger,
	}
	logger.Info("registry initialized", "session_id", r.sessionID, "max_history", opts.MaxHistory)
	return r
}

// SessionID identifies this registry instance.
func (r *Registry) SessionID() string {
	return r.sessionID
}

// #endregion registry

// #region create

// CreateState allocates and registers a new vector. A nil initial value
// means an empty mapping; non-mapping input is ErrContractViolation,
// immediately and without coercion. The new vector becomes current only
// when it is the first one in the session.
func (r *Registry) CreateState(initial any) (*state.Vector, error) {
	node, err := state.New(initial)
	if err != nil {
		return nil, fmt.Errorf("create state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.register(node, "", "create")
	r.logger.Debug("state created", "id", node.ID, "keys", len(node.Data))
	return node, nil
}

// #endregion create

// #region update

// UpdateState derives a new vector from the one registered under id by
// applying patch with the right-biased one-level merge rule. The child
// inherits the parent's entangled set and registered observables, every
// currently entangled neighbor
// has its live weights multiplied by the child's (without cascading), and
// the current pointer advances to the child. An unknown id fails with
// ErrNotFound; creating state under an unrecognized id would corrupt the
// id space.
func (r *Registry) UpdateState(id string, patch map[string]any) (*state.Vector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("update state %s: %w", id, state.ErrNotFound)
	}

	child := node.Update(patch)
	r.graph.Adopt(node.ID, child.ID)
	r.register(child, node.ID, "update")
	r.inheritObservables(node.ID, child.ID)
	r.notify(child)

	r.logger.Debug("state updated", "parent", node.ID, "id", child.ID)
	return child, nil
}

// inheritObservables copies the parent's observable map to the child, so a
// derived vector keeps answering the names registered on its ancestors. The
// parent keeps its own entries until eviction.
func (r *Registry) inheritObservables(parentID, childID string) {
	parent := r.observables[parentID]
	if len(parent) == 0 {
		return
	}
	inherited := make(map[string]state.Observable, len(parent))
	for name, fn := range parent {
		inherited[name] = fn
	}
	r.observables[childID] = inherited
}

// notify multiplies each entangled neighbor's live weights by the updated
// vector's, clamped. Neighbors are visited once, in sorted-id order, and a
// notified neighbor never updates or re-notifies: the blast radius of one
// update is its direct neighbors only.
func (r *Registry) notify(updated *state.Vector) {
	for _, id := range r.graph.Neighbors(updated.ID) {
		neighbor, ok := r.nodes[id]
		if !ok {
			continue
		}
		neighbor.Amplitude = state.ClampAmplitude(neighbor.Amplitude * updated.Amplitude)
		neighbor.Probability = state.ClampProbability(neighbor.Probability * updated.Probability)
	}
}

// #endregion update

// #region merge

// MergeStates combines two registered vectors into a new one, with the
// second's data winning on conflict one level deep. Weights multiply,
// entangled sets union, observables union with the second's entries
// overriding on name collision. The merged vector registers, appends to
// history and becomes current. Either id unknown is ErrNotFound.
func (r *Registry) MergeStates(id1, id2 string) (*state.Vector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.nodes[id1]
	if !ok {
		return nil, fmt.Errorf("merge state %s: %w", id1, state.ErrNotFound)
	}
	b, ok := r.nodes[id2]
	if !ok {
		return nil, fmt.Errorf("merge state %s: %w", id2, state.ErrNotFound)
	}

	merged := a.MergeWith(b)
	r.graph.Adopt(a.ID, merged.ID)
	r.graph.Adopt(b.ID, merged.ID)
	r.register(merged, a.ID, "merge")

	union := map[string]state.Observable{}
	for name, fn := range r.observables[a.ID] {
		union[name] = fn
	}
	for name, fn := range r.observables[b.ID] {
		union[name] = fn
	}
	if len(union) > 0 {
		r.observables[merged.ID] = union
	}

	r.logger.Debug("states merged", "left", a.ID, "right", b.ID, "id", merged.ID)
	return merged, nil
}

// #endregion merge

// #region read

// GetState returns the vector registered under id, or the current vector
// when id is empty. Unknown ids report absence, never an error.
func (r *Registry) GetState(id string) (*state.Vector, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(id)
}

// Current returns the current vector, if any exists yet.
func (r *Registry) Current() (*state.Vector, bool) {
	return r.GetState("")
}

func (r *Registry) lookup(id string) (*state.Vector, bool) {
	if id == "" {
		id = r.currentID
	}
	node, ok := r.nodes[id]
	return node, ok
}

// ComputeDelta returns the structural diff between two registered vectors.
// An unknown id on this read path yields an empty mapping.
func (r *Registry) ComputeDelta(oldID, newID string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldNode, okOld := r.nodes[oldID]
	newNode, okNew := r.nodes[newID]
	if !okOld || !okNew {
		return map[string]any{}
	}
	return delta.Diff(oldNode.Data, newNode.Data)
}

// History returns the registered version ids in append order.
func (r *Registry) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

// Len returns the number of retained versions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// #endregion read

// #region entangle

// EntangleStates couples two vectors' confidence-weight propagation. The
// relation is symmetric and idempotent. Unknown ids make this a no-op, not
// a failure.
func (r *Registry) EntangleStates(id1, id2 string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id1]; !ok {
		return
	}
	if _, ok := r.nodes[id2]; !ok {
		return
	}
	r.graph.Entangle(id1, id2)
}

// Entangled reports whether the two ids currently share an edge.
func (r *Registry) Entangled(id1, id2 string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.Entangled(id1, id2)
}

// #endregion entangle

// #region observe

// AddObservable registers a named derived-value function for the vector
// under id. Write path: an unknown id is ErrNotFound.
func (r *Registry) AddObservable(id, name string, fn state.Observable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return fmt.Errorf("add observable %s: %w", id, state.ErrNotFound)
	}
	if r.observables[id] == nil {
		r.observables[id] = map[string]state.Observable{}
	}
	r.observables[id][name] = fn
	return nil
}

// Observe marks the vector under id as collapsed and reads from it. A key
// matching a registered observable returns the computed value; otherwise
// the raw data value, or the full mapping for an empty key. Unknown ids and
// missing keys report absence, never an error.
func (r *Registry) Observe(id, key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.lookup(id)
	if !ok {
		return nil, false
	}
	if key != "" {
		if fn, ok := r.observables[node.ID][key]; ok {
			node.Collapsed = true
			return fn(node.Data), true
		}
	}
	return node.Observe(key)
}

// #endregion observe

// #region register

// register stores a vector, appends it to history, advances the current
// pointer, mirrors the write to the archive sink and applies retention.
// Callers hold the mutex.
func (r *Registry) register(node *state.Vector, parentID, op string) {
	r.nodes[node.ID] = node
	r.history = append(r.history, node.ID)
	if op != "create" || r.currentID == "" {
		r.currentID = node.ID
	}

	if r.opts.Archive != nil {
		if err := r.opts.Archive.SaveSnapshot(codec.Take(node)); err != nil {
			r.logger.Warn("archive snapshot failed", "id", node.ID, "err", err)
		}
		commit := Commit{
			VersionID: node.ID,
			ParentID:  parentID,
			Op:        op,
			CreatedAt: node.CreatedAt,
		}
		if err := r.opts.Archive.SaveCommit(commit); err != nil {
			r.logger.Warn("archive commit failed", "id", node.ID, "err", err)
		}
	}

	r.prune()
}

// prune evicts the oldest non-current versions once history exceeds the
// cap. The current vector is never evicted.
func (r *Registry) prune() {
	if r.opts.MaxHistory <= 0 {
		return
	}
	for len(r.history) > r.opts.MaxHistory {
		idx := 0
		if r.history[idx] == r.currentID {
			if len(r.history) < 2 {
				return
			}
			idx = 1
		}
		victim := r.history[idx]
		r.history = append(r.history[:idx], r.history[idx+1:]...)
		delete(r.nodes, victim)
		delete(r.observables, victim)
		r.graph.Sever(victim)
		r.logger.Debug("version evicted", "id", victim)
	}
}

// #endregion register
