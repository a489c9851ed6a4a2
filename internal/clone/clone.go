// Package clone provides structural graph copying and the isomorphism
// check used to compare optimization outcomes. Both walk shared, possibly
// self-referential graphs with visited-pair memoization, so recursive
// functions are handled without infinite descent.
package clone

import (
	"errors"
	"fmt"

	"github.com/wisplang/wisp/internal/ir"
)

// ErrMalformedGraph reports a structural-invariant violation in the input,
// such as a graph without an output or a free-variable reference into a
// graph outside the compared closure. It is distinct from a false
// isomorphism result.
var ErrMalformedGraph = errors.New("malformed graph")

// Cloner produces an independent copy of a graph with the same shape (same
// arities, constant values, and closure-capture topology) but fresh node
// and graph identities throughout, so clone and original can be mutated
// independently.
//
// In total mode every transitively reachable graph is cloned, including
// the owners of free-variable references. In partial mode only the root
// graph is cloned and references to nodes of enclosing graphs alias the
// originals.
type Cloner struct {
	total  bool
	graphs map[*ir.Graph]*ir.Graph
	nodes  map[*ir.Node]*ir.Node
}

// NewCloner creates a cloner. Total selects total mode.
func NewCloner(total bool) *Cloner {
	return &Cloner{
		total:  total,
		graphs: make(map[*ir.Graph]*ir.Graph),
		nodes:  make(map[*ir.Node]*ir.Node),
	}
}

// Total clones g and every graph reachable from it.
func Total(g *ir.Graph) (*ir.Graph, error) {
	return NewCloner(true).Clone(g)
}

// Clone copies g according to the cloner's mode and returns the copy.
func (c *Cloner) Clone(g *ir.Graph) (*ir.Graph, error) {
	var set []*ir.Graph
	if c.total {
		set = ir.ReachableGraphs(g)
	} else {
		set = []*ir.Graph{g}
	}

	// Shells first, bodies second: a recursive graph's constant reference
	// resolves through the shell before the body is complete.
	for _, orig := range set {
		if orig.Output() == nil {
			return nil, fmt.Errorf("%w: graph %s has no output", ErrMalformedGraph, orig.Name)
		}
		if _, ok := c.graphs[orig]; ok {
			continue
		}
		ng := ir.NewGraph(orig.Name)
		c.graphs[orig] = ng
		for _, p := range orig.Parameters() {
			np := ng.AddParameter(p.Name)
			np.Type = p.Type
			c.nodes[p] = np
		}
	}
	for _, orig := range set {
		c.graphs[orig].SetOutput(c.cloneNode(orig.Output()))
	}
	return c.graphs[g], nil
}

// Cloned returns the copy made for n, or n itself when it was aliased
// rather than cloned.
func (c *Cloner) Cloned(n *ir.Node) *ir.Node {
	if nn, ok := c.nodes[n]; ok {
		return nn
	}
	return n
}

func (c *Cloner) cloneNode(n *ir.Node) *ir.Node {
	if nn, ok := c.nodes[n]; ok {
		return nn
	}
	if own := n.Graph(); own != nil {
		if _, inSet := c.graphs[own]; !inSet {
			// Free reference to a graph outside the clone set: alias.
			return n
		}
	}
	var nn *ir.Node
	switch {
	case n.IsApply():
		inputs := make([]*ir.Node, len(n.Inputs))
		nn = ir.NewApply(c.graphs[n.Graph()], inputs...)
		c.nodes[n] = nn
		for i, in := range n.Inputs {
			inputs[i] = c.cloneNode(in)
		}
	case n.IsConstant():
		if sub := n.ConstGraph(); sub != nil {
			if ng, inSet := c.graphs[sub]; inSet {
				nn = ir.NewConstant(ng)
			} else {
				nn = ir.NewConstant(sub)
			}
		} else {
			nn = ir.NewConstant(n.Value)
		}
		c.nodes[n] = nn
	default:
		// Parameters of in-set graphs were cloned with their shells; a
		// parameter reaching here is a free reference handled above.
		nn = n
		c.nodes[n] = nn
	}
	nn.Type = n.Type
	return nn
}
