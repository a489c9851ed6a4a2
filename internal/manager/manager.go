// Package manager maintains ownership and use/user indices for a set of IR
// graphs and provides the atomic node-replacement primitive every structural
// mutation must go through.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wisplang/wisp/internal/ctxlog"
	"github.com/wisplang/wisp/internal/ir"
)

// ErrOwnershipConflict is returned by Manage when a node or graph already
// belongs to a different manager.
var ErrOwnershipConflict = errors.New("node already owned by another manager")

// Use identifies one reference to a node: the Apply node holding the
// reference and the input position it occupies.
type Use struct {
	User  *ir.Node
	Index int
}

// Manager owns a set of graphs and every node transitively reachable from
// them, and keeps a use/user edge index consistent with the live input
// edges of every Apply node. It is not safe for concurrent use; callers
// sharing a Manager across goroutines must serialize access externally.
type Manager struct {
	graphs     map[*ir.Graph]bool
	graphOrder []*ir.Graph
	roots      map[*ir.Graph]bool

	nodes map[*ir.Node]bool
	users map[*ir.Node]map[Use]bool

	// graphRefs counts constant nodes referencing each managed graph, so
	// graphs dropped by a replacement can be reclaimed with their bodies.
	graphRefs map[*ir.Graph]int

	// seq assigns nodes a per-manager sequence number, giving UsersOf and
	// the optimizer's re-queue order a deterministic basis.
	seq     map[*ir.Node]int
	nextSeq int
}

// New returns an empty manager.
func New() *Manager {
	return &Manager{
		graphs:    make(map[*ir.Graph]bool),
		roots:     make(map[*ir.Graph]bool),
		nodes:     make(map[*ir.Node]bool),
		users:     make(map[*ir.Node]map[Use]bool),
		graphRefs: make(map[*ir.Graph]int),
		seq:       make(map[*ir.Node]int),
	}
}

// Manage adds the given graphs, and everything transitively reachable from
// them (nested closures included), to the managed set. Managing a graph
// already held by this manager is a no-op; a node or graph held by a
// different manager fails with ErrOwnershipConflict before any state is
// mutated.
func (m *Manager) Manage(ctx context.Context, graphs ...*ir.Graph) error {
	// Ownership is checked over the full transitive closure first so a
	// conflict cannot leave the managed set half updated.
	var pending []*ir.Graph
	for _, root := range graphs {
		for _, g := range ir.ReachableGraphs(root) {
			if g.Owner() != nil && g.Owner() != m {
				return fmt.Errorf("graph %s: %w", g.Name, ErrOwnershipConflict)
			}
			pending = append(pending, g)
		}
		for _, n := range ir.Reachable(root.Output()) {
			if n.Owner() != nil && n.Owner() != m {
				return fmt.Errorf("node %s: %w", n, ErrOwnershipConflict)
			}
		}
	}

	for _, root := range graphs {
		m.addGraph(root, true)
	}
	for _, g := range pending {
		m.addGraph(g, false)
	}
	ctxlog.FromContext(ctx).Debug("graphs managed",
		"roots", len(graphs), "graphs", len(m.graphs), "nodes", len(m.nodes))
	return nil
}

func (m *Manager) addGraph(g *ir.Graph, root bool) {
	if root {
		m.roots[g] = true
	}
	if m.graphs[g] {
		return
	}
	m.graphs[g] = true
	m.graphOrder = append(m.graphOrder, g)
	g.SetOwner(m)
	for _, p := range g.Parameters() {
		m.addNode(p)
	}
	if out := g.Output(); out != nil {
		m.addTree(out)
	}
}

func (m *Manager) addNode(n *ir.Node) {
	if m.nodes[n] {
		return
	}
	m.nodes[n] = true
	n.SetOwner(m)
	if _, ok := m.seq[n]; !ok {
		m.seq[n] = m.nextSeq
		m.nextSeq++
	}
	if m.users[n] == nil {
		m.users[n] = make(map[Use]bool)
	}
}

// addTree absorbs a subtree rooted at n: nodes already managed are left
// alone (their edges are recorded already), fresh nodes are registered
// together with their input edges, and fresh graph constants pull their
// graphs into the managed set.
func (m *Manager) addTree(n *ir.Node) {
	if m.nodes[n] {
		return
	}
	m.addNode(n)
	for i, in := range n.Inputs {
		m.addTree(in)
		m.users[in][Use{User: n, Index: i}] = true
	}
	if sub := n.ConstGraph(); sub != nil {
		m.graphRefs[sub]++
		m.addGraph(sub, false)
	}
}

// Replace atomically rewires every use of old to new: each (user, index)
// pair referencing old is pointed at new, graphs whose output is old are
// redirected, the use/user index is updated, and anything left unreachable
// is reclaimed. It returns the number of rewired references (graph outputs
// included). Replacing a node with itself is a no-op.
//
// If new is reachable from old before the call, the result is an undefined
// program (the indices stay self-consistent, but the graph's meaning is the
// caller's problem).
func (m *Manager) Replace(ctx context.Context, old, new *ir.Node) int {
	if old == new || old == nil || new == nil {
		return 0
	}
	m.addTree(new)

	rewired := 0
	for _, u := range m.UsersOf(old) {
		u.User.Inputs[u.Index] = new
		m.users[new][u] = true
		delete(m.users[old], u)
		rewired++
	}
	for _, g := range m.graphOrder {
		if m.graphs[g] && g.Output() == old {
			g.SetOutput(new)
			rewired++
		}
	}
	m.release(old)

	ctxlog.FromContext(ctx).Debug("node replaced",
		"old", old.String(), "new", new.String(), "uses", rewired)
	return rewired
}

// release reclaims n if nothing references it any more, dropping its input
// edges and cascading into inputs (and closed-over graphs) that become
// unreachable in turn. Parameters and graph outputs are never reclaimed.
func (m *Manager) release(n *ir.Node) {
	if !m.nodes[n] || len(m.users[n]) > 0 || n.IsParameter() || m.isOutput(n) {
		return
	}
	delete(m.nodes, n)
	delete(m.users, n)
	for i, in := range n.Inputs {
		if m.users[in] != nil {
			delete(m.users[in], Use{User: n, Index: i})
		}
		m.release(in)
	}
	if sub := n.ConstGraph(); sub != nil {
		m.graphRefs[sub]--
		if m.graphRefs[sub] <= 0 && !m.roots[sub] {
			m.dropGraph(sub)
		}
	}
}

func (m *Manager) dropGraph(g *ir.Graph) {
	if !m.graphs[g] {
		return
	}
	delete(m.graphs, g)
	delete(m.graphRefs, g)
	for i, kept := range m.graphOrder {
		if kept == g {
			m.graphOrder = append(m.graphOrder[:i], m.graphOrder[i+1:]...)
			break
		}
	}
	g.SetOwner(nil)
	for _, p := range g.Parameters() {
		delete(m.nodes, p)
		delete(m.users, p)
		p.SetOwner(nil)
	}
	if out := g.Output(); out != nil && m.nodes[out] {
		// The output anchor is gone with its graph; reclaim the body.
		if len(m.users[out]) == 0 {
			delete(m.nodes, out)
			delete(m.users, out)
			for i, in := range out.Inputs {
				if m.users[in] != nil {
					delete(m.users[in], Use{User: out, Index: i})
				}
				m.release(in)
			}
		}
	}
}

func (m *Manager) isOutput(n *ir.Node) bool {
	for _, g := range m.graphOrder {
		if g.Output() == n {
			return true
		}
	}
	return false
}

// Contains reports whether n is currently in the managed set.
func (m *Manager) Contains(n *ir.Node) bool { return m.nodes[n] }

// ManagesGraph reports whether g is currently in the managed set.
func (m *Manager) ManagesGraph(g *ir.Graph) bool { return m.graphs[g] }

// Graphs returns the managed graphs in the order they were first seen.
func (m *Manager) Graphs() []*ir.Graph {
	out := make([]*ir.Graph, len(m.graphOrder))
	copy(out, m.graphOrder)
	return out
}

// UsersOf returns the current uses of n as (user, input position) pairs,
// ordered by the user's sequence number and position.
func (m *Manager) UsersOf(n *ir.Node) []Use {
	set := m.users[n]
	out := make([]Use, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if m.seq[out[i].User] != m.seq[out[j].User] {
			return m.seq[out[i].User] < m.seq[out[j].User]
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// AllNodes returns every node reachable from the outputs of the managed
// graphs, parameters included, deduplicated, in a deterministic order.
func (m *Manager) AllNodes() []*ir.Node {
	seen := make(map[*ir.Node]bool)
	var out []*ir.Node
	for _, g := range m.graphOrder {
		for _, p := range g.Parameters() {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		for _, n := range ir.Reachable(g.Output()) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Captures returns the free variables of g including those reachable only
// through nested closures: every node in g's body (closures included) owned
// by a graph that is not g itself or one of its nested graphs.
func (m *Manager) Captures(g *ir.Graph) []*ir.Node {
	inner := make(map[*ir.Graph]bool)
	inner[g] = true
	for _, n := range ir.Reachable(g.Output()) {
		if sub := n.ConstGraph(); sub != nil {
			inner[sub] = true
		}
	}
	seen := make(map[*ir.Node]bool)
	var out []*ir.Node
	for _, n := range ir.Reachable(g.Output()) {
		if seen[n] {
			continue
		}
		seen[n] = true
		if own := n.Graph(); own != nil && !inner[own] {
			out = append(out, n)
		}
	}
	return out
}
