package ir

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Kind distinguishes the three node variants of the IR.
type Kind int

const (
	// KindConstant is an immutable literal, operation, or graph reference.
	KindConstant Kind = iota
	// KindParameter is a formal parameter of exactly one owning graph.
	KindParameter
	// KindApply is the application of an operation to ordered arguments.
	KindApply
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindParameter:
		return "parameter"
	case KindApply:
		return "apply"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Operation is a named primitive the IR can apply. Operations are interned
// by the registry package; two operations are the same operation iff they
// are the same pointer.
type Operation struct {
	Name string
}

func (op *Operation) String() string { return op.Name }

// Node is a single vertex in an IR graph.
//
// The zero value is not usable; construct nodes with NewConstant,
// NewParameter (via Graph.AddParameter), or NewApply.
type Node struct {
	kind Kind

	// Inputs is the ordered input sequence of an Apply node: element 0 is
	// the operation position, elements 1.. are arguments. Nil for other
	// kinds. Mutated in place only through manager.Replace.
	Inputs []*Node

	// Value is the payload of a Constant: cty.Value, *Operation, or *Graph.
	Value any

	// Name is the human-readable name of a Parameter.
	Name string

	// Type is the optional inferred-type annotation. It is opaque to this
	// core: written by the external inference pass, cleared by the
	// optimizer in watch mode so rewritten nodes can be re-validated.
	Type any

	// graph is the owning graph of a Parameter or Apply node. Constants
	// are owned by no graph.
	graph *Graph

	// owner is the manager currently holding this node, if any. Typed as
	// any to keep the manager package out of ir's import graph.
	owner any
}

// NewConstant returns a fresh Constant node. The payload must be a
// cty.Value, an *Operation, or a *Graph.
func NewConstant(value any) *Node {
	return &Node{kind: KindConstant, Value: value}
}

// NewApply returns a fresh Apply node owned by g. Element 0 of inputs is
// the operation position.
func NewApply(g *Graph, inputs ...*Node) *Node {
	return &Node{kind: KindApply, Inputs: inputs, graph: g}
}

// Kind reports the node's variant.
func (n *Node) Kind() Kind { return n.kind }

// IsConstant reports whether n is a Constant node.
func (n *Node) IsConstant() bool { return n.kind == KindConstant }

// IsParameter reports whether n is a Parameter node.
func (n *Node) IsParameter() bool { return n.kind == KindParameter }

// IsApply reports whether n is an Apply node.
func (n *Node) IsApply() bool { return n.kind == KindApply }

// Graph returns the owning graph of a Parameter or Apply node, nil for
// Constants.
func (n *Node) Graph() *Graph { return n.graph }

// Owner returns the manager currently holding this node, or nil.
func (n *Node) Owner() any { return n.owner }

// SetOwner records the holding manager. Called by the manager package only.
func (n *Node) SetOwner(owner any) { n.owner = owner }

// ConstGraph returns the *Graph payload of a Constant, or nil.
func (n *Node) ConstGraph() *Graph {
	if n.kind != KindConstant {
		return nil
	}
	g, _ := n.Value.(*Graph)
	return g
}

// ConstOperation returns the *Operation payload of a Constant, or nil.
func (n *Node) ConstOperation() *Operation {
	if n.kind != KindConstant {
		return nil
	}
	op, _ := n.Value.(*Operation)
	return op
}

// IsOperation reports whether n is a Constant holding the given operation.
func (n *Node) IsOperation(op *Operation) bool {
	return n.ConstOperation() == op
}

// Op returns the operation position of an Apply node, nil otherwise.
func (n *Node) Op() *Node {
	if n.kind != KindApply || len(n.Inputs) == 0 {
		return nil
	}
	return n.Inputs[0]
}

// Args returns the argument positions of an Apply node.
func (n *Node) Args() []*Node {
	if n.kind != KindApply || len(n.Inputs) == 0 {
		return nil
	}
	return n.Inputs[1:]
}

func (n *Node) String() string {
	switch n.kind {
	case KindConstant:
		return ConstString(n.Value)
	case KindParameter:
		return n.Name
	case KindApply:
		return Sexp(n)
	default:
		return "<invalid>"
	}
}

// SameConstant reports value equality between two constant payloads:
// cty values compare by RawEquals, operations and graphs by identity.
func SameConstant(a, b any) bool {
	switch av := a.(type) {
	case cty.Value:
		bv, ok := b.(cty.Value)
		return ok && av.RawEquals(bv)
	default:
		return a == b
	}
}

// ConstString renders a constant payload for printing and for canonical
// value keys: cty values use their GoString form, which is stable for
// equal values.
func ConstString(value any) string {
	switch v := value.(type) {
	case cty.Value:
		return v.GoString()
	case *Operation:
		return v.Name
	case *Graph:
		return "#" + v.Name
	default:
		return fmt.Sprintf("%v", v)
	}
}
