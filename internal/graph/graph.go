package graph

import "sort"

// #region types

// Graph is a symmetric, non-owning adjacency over state node ids. Edges are
// stored as id pairs only; node lifetime belongs to the registry's arena.
// Graph is not safe for concurrent use; the registry serializes access.
type Graph struct {
	adj map[string]map[string]struct{}
}

// #endregion types

// #region constructor

// New returns an empty entanglement graph.
func New() *Graph {
	return &Graph{adj: map[string]map[string]struct{}{}}
}

// #endregion constructor

// #region entangle

// Entangle establishes the symmetric relation between a and b. Re-entangling
// an already-entangled pair is a no-op, as is a self-loop.
func (g *Graph) Entangle(a, b string) {
	if a == b {
		return
	}
	g.link(a, b)
	g.link(b, a)
}

func (g *Graph) link(from, to string) {
	set, ok := g.adj[from]
	if !ok {
		set = map[string]struct{}{}
		g.adj[from] = set
	}
	set[to] = struct{}{}
}

// #endregion entangle

// #region adopt

// Adopt entangles child with every current neighbor of parent, so a vector
// derived by update inherits its parent's entangled set with the symmetry
// invariant intact. The parent keeps its own edges.
func (g *Graph) Adopt(parent, child string) {
	for neighbor := range g.adj[parent] {
		g.Entangle(child, neighbor)
	}
}

// #endregion adopt

// #region queries

// Entangled reports whether a and b share an edge.
func (g *Graph) Entangled(a, b string) bool {
	_, ok := g.adj[a][b]
	return ok
}

// Neighbors returns the ids entangled with id, sorted for deterministic
// notification order.
func (g *Graph) Neighbors(id string) []string {
	set := g.adj[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of ids entangled with id.
func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

// #endregion queries

// #region sever

// Sever removes every edge touching id. Used by retention eviction; the
// public API defines no edge removal.
func (g *Graph) Sever(id string) {
	for neighbor := range g.adj[id] {
		delete(g.adj[neighbor], id)
		if len(g.adj[neighbor]) == 0 {
			delete(g.adj, neighbor)
		}
	}
	delete(g.adj, id)
}

// #endregion sever
