package pattern

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/wisplang/wisp/internal/ir"
)

// Match attempts to unify the pattern with the node under env, threading
// bindings through the structural recursion. On success it returns the
// extended environment; on failure the original env is unchanged. A nil
// env starts a fresh attempt. Matching is deterministic and fully
// arity-checked: an Apply-shaped pattern only matches an Apply node with
// exactly the same input count.
func Match(p Pattern, n *ir.Node, env Env) (Env, bool) {
	if env == nil {
		env = make(Env)
	}
	scratch := make(Env, len(env))
	for k, v := range env {
		scratch[k] = v
	}
	if !match(p, n, scratch) {
		return env, false
	}
	return scratch, true
}

func match(p Pattern, n *ir.Node, env Env) bool {
	if n == nil {
		return false
	}
	switch pat := p.(type) {
	case *Call:
		if !n.IsApply() || len(n.Inputs) != len(pat.Items) {
			return false
		}
		for i, item := range pat.Items {
			if !match(item, n.Inputs[i], env) {
				return false
			}
		}
		return true
	case *Var:
		if pat.Pred != nil && !pat.Pred(n) {
			return false
		}
		if bound, ok := env[pat]; ok {
			return sameNode(bound, n)
		}
		env[pat] = n
		return true
	case *ir.Operation:
		return n.IsOperation(pat)
	case *ir.Graph:
		return n.ConstGraph() == pat
	case *ir.Node:
		return pat == n
	case cty.Value:
		return n.IsConstant() && ir.SameConstant(n.Value, pat)
	default:
		return false
	}
}

// sameNode is the unification equality for repeated variables: node
// identity, or value equality between constants.
func sameNode(a, b *ir.Node) bool {
	if a == b {
		return true
	}
	return a.IsConstant() && b.IsConstant() && ir.SameConstant(a.Value, b.Value)
}

// Builtin predicates available to the textual pattern language.

// IsConstant accepts any Constant node.
func IsConstant(n *ir.Node) bool { return n.IsConstant() }

// IsParameter accepts any Parameter node.
func IsParameter(n *ir.Node) bool { return n.IsParameter() }

// IsApply accepts any Apply node.
func IsApply(n *ir.Node) bool { return n.IsApply() }
