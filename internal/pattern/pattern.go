// Package pattern implements the declarative pattern-substitution and
// unification engine: s-expression pattern trees over operations, logic
// variables, and predicate-guarded variables, a matcher binding pattern
// variables to concrete IR subtrees, and a builder instantiating a
// replacement pattern under a binding environment.
package pattern

import (
	"github.com/wisplang/wisp/internal/ir"
)

// Pattern is one tree of the pattern mini-language. Valid shapes:
//
//   - *Call: matches an Apply node of the same arity, element-wise
//   - *Var: matches any node (optionally predicate-guarded), binding once
//   - *ir.Operation: matches a Constant holding that operation
//   - *ir.Graph: matches a Constant holding that graph
//   - *ir.Node: matches exactly that node
//   - cty.Value: matches a Constant with an equal value
type Pattern any

// Call is an Apply-shaped pattern: element 0 is the operation position.
type Call struct {
	Items []Pattern
}

// NewCall builds an Apply-shaped pattern from its elements.
func NewCall(items ...Pattern) *Call { return &Call{Items: items} }

// Predicate guards a Var: the variable matches only nodes it accepts.
type Predicate func(*ir.Node) bool

// Var is a logic variable. A Var binds at most once per match attempt;
// repeated occurrences of the same Var must unify to the same node (or to
// constants of equal value). Vars compare by identity, so the same *Var
// must be shared between a rule's match and rewrite patterns.
type Var struct {
	Name string
	Pred Predicate
}

// NewVar creates an unguarded logic variable.
func NewVar(name string) *Var { return &Var{Name: name} }

// NewPredVar creates a predicate-guarded logic variable.
func NewPredVar(name string, pred Predicate) *Var {
	return &Var{Name: name, Pred: pred}
}

func (v *Var) String() string { return "?" + v.Name }

// Env is a binding environment produced by a successful match attempt.
type Env map[*Var]*ir.Node

// Get returns the node bound to v, or nil.
func (e Env) Get(v *Var) *ir.Node { return e[v] }
