// Package opt drives rewrite rules over managed IR graphs to equilibrium
// and provides the common-subexpression-elimination pass. Rule application
// is sound with respect to graph sharing; supplying a terminating
// (well-founded) rule set is the caller's responsibility.
package opt

import (
	"fmt"

	"github.com/wisplang/wisp/internal/ir"
	"github.com/wisplang/wisp/internal/pattern"
)

// ReplacerFunc computes a replacement for a matched node, with full access
// to the optimizer and the binding environment. Returning (nil, nil) means
// the rule declines after all and the next rule is tried; returning an
// error aborts the whole optimization run.
type ReplacerFunc func(o *Optimizer, node *ir.Node, env pattern.Env) (*ir.Node, error)

// Rule is one rewrite rule: a match pattern paired with either a rewrite
// pattern or a replacement procedure. The two forms expose the same
// match/apply interface to the scheduler.
type Rule struct {
	Name string

	match    pattern.Pattern
	rewrite  pattern.Pattern
	replacer ReplacerFunc
}

// NewSub creates a declarative pattern-substitution rule.
func NewSub(name string, match, rewrite pattern.Pattern) *Rule {
	return &Rule{Name: name, match: match, rewrite: rewrite}
}

// NewReplacer creates a procedural rule: the pattern selects candidate
// nodes, the function computes the replacement.
func NewReplacer(name string, match pattern.Pattern, fn ReplacerFunc) *Rule {
	return &Rule{Name: name, match: match, replacer: fn}
}

func (r *Rule) String() string { return r.Name }

// apply attempts the rule on one node. It returns the replacement node and
// true when the rule fired; (nil, false, nil) when the pattern does not
// match or the procedure declined. A replacement identical to the node
// counts as not firing.
func (r *Rule) apply(o *Optimizer, n *ir.Node) (*ir.Node, bool, error) {
	env, ok := pattern.Match(r.match, n, nil)
	if !ok {
		return nil, false, nil
	}
	var out *ir.Node
	var err error
	if r.replacer != nil {
		out, err = r.replacer(o, n, env)
	} else {
		out, err = pattern.Build(r.rewrite, env, n.Graph())
	}
	if err != nil {
		return nil, false, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	if out == nil || out == n {
		return nil, false, nil
	}
	return out, true, nil
}
