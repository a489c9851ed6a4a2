package clone

import (
	"fmt"

	"github.com/wisplang/wisp/internal/ir"
)

// Isomorphic reports whether two graphs are structurally equal up to
// renaming of parameters and sharing of equal subexpressions: there is a
// positional correspondence between their parameters, a value-equality
// correspondence between their constants, and an arity-preserving
// structural correspondence between their Apply nodes, consistent across
// the whole graph including free-variable references into enclosing
// graphs. Correspondence is kept per pair of nodes, so a subexpression one
// graph shares and the other duplicates compares equal from either side,
// and the relation is an equivalence (reflexive, symmetric, transitive).
// Graph pairs already under comparison are treated as equal, so mutually
// or self-recursive graphs terminate (coinductive equality).
//
// A malformed input (graph without output, or a free-variable reference
// into a graph outside the compared closure) returns ErrMalformedGraph,
// which is distinct from a false result.
func Isomorphic(a, b *ir.Graph) (bool, error) {
	chk := &isoCheck{
		equiv:   make(map[nodePair]bool),
		scope:   make(map[graphPair]bool),
		inScope: make(map[*ir.Graph]bool),
		onHold:  make(map[graphPair]bool),
	}
	return chk.graphs(a, b)
}

type graphPair struct {
	a, b *ir.Graph
}

type nodePair struct {
	a, b *ir.Node
}

type isoCheck struct {
	// equiv records every node pair established as corresponding: the
	// positional parameter pairs of each compared graph pair, plus every
	// Apply pair compared so far. Keyed by pair, not by node, so one side
	// sharing a node the other side duplicates matches in both directions.
	equiv map[nodePair]bool
	// scope records each graph pair under comparison; inScope the
	// left-hand graphs, for telling a plain mismatch from a reference
	// leaving the compared closure.
	scope   map[graphPair]bool
	inScope map[*ir.Graph]bool
	// onHold holds graph pairs currently (or already) being compared; a
	// revisited pair is trivially equal.
	onHold map[graphPair]bool
}

func (c *isoCheck) graphs(a, b *ir.Graph) (bool, error) {
	if a == nil || b == nil {
		return false, fmt.Errorf("%w: nil graph", ErrMalformedGraph)
	}
	pair := graphPair{a, b}
	if c.onHold[pair] {
		return true, nil
	}
	c.onHold[pair] = true

	if a.Output() == nil || b.Output() == nil {
		return false, fmt.Errorf("%w: graph without output", ErrMalformedGraph)
	}
	pa, pb := a.Parameters(), b.Parameters()
	if len(pa) != len(pb) {
		return false, nil
	}
	for i := range pa {
		c.equiv[nodePair{pa[i], pb[i]}] = true
	}
	c.scope[pair] = true
	c.inScope[a] = true
	return c.nodes(a.Output(), b.Output())
}

func (c *isoCheck) nodes(x, y *ir.Node) (bool, error) {
	if x == nil || y == nil {
		return false, fmt.Errorf("%w: nil node", ErrMalformedGraph)
	}
	if x == y || c.equiv[nodePair{x, y}] {
		return true, nil
	}
	if x.Kind() != y.Kind() {
		return false, nil
	}
	switch {
	case x.IsApply():
		if len(x.Inputs) != len(y.Inputs) {
			return false, nil
		}
		if !c.inScope[x.Graph()] {
			return false, fmt.Errorf("%w: reference into graph %s outside the compared closure",
				ErrMalformedGraph, x.Graph().Name)
		}
		if !c.scope[graphPair{x.Graph(), y.Graph()}] {
			return false, nil
		}
		// Recorded before the inputs so a self-referential input chain
		// terminates on the memo.
		c.equiv[nodePair{x, y}] = true
		for i := range x.Inputs {
			ok, err := c.nodes(x.Inputs[i], y.Inputs[i])
			if !ok || err != nil {
				return false, err
			}
		}
		return true, nil
	case x.IsParameter():
		if c.inScope[x.Graph()] {
			// Its graph was compared, so the positional pairing exists;
			// this combination just is not it.
			return false, nil
		}
		return false, fmt.Errorf("%w: dangling parameter %s of graph %s",
			ErrMalformedGraph, x.Name, x.Graph().Name)
	default:
		ga, gb := x.ConstGraph(), y.ConstGraph()
		if ga != nil || gb != nil {
			if ga == nil || gb == nil {
				return false, nil
			}
			return c.graphs(ga, gb)
		}
		// Plain constants match by value alone, not by identity, so two
		// graphs may share equal constants differently and still be
		// isomorphic.
		return ir.SameConstant(x.Value, y.Value), nil
	}
}
