package pattern

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/wisplang/wisp/internal/ir"
)

// SexpToGraph converts a pattern tree into a standalone Graph. Logic
// variables become graph parameters, ordered by first appearance; guards
// on variables are ignored (a parameter stands for any value). Constant
// operations are interned per call, so an operation appearing several
// times in the sexp is one Constant node in the graph.
func SexpToGraph(name string, p Pattern) (*ir.Graph, error) {
	return SexpToGraphParams(name, p)
}

// SexpToGraphParams is SexpToGraph with an explicit leading parameter
// list, letting a graph declare parameters its body never mentions (or fix
// the parameter order independently of first appearance). Variables found
// in the sexp but not listed are appended in first-appearance order.
func SexpToGraphParams(name string, p Pattern, params ...*Var) (*ir.Graph, error) {
	g := ir.NewGraph(name)
	env := make(Env)
	seen := make(map[*Var]bool)
	for _, v := range params {
		seen[v] = true
		env[v] = g.AddParameter(v.Name)
	}
	for _, v := range collectVars(p, nil, seen) {
		env[v] = g.AddParameter(v.Name)
	}
	consts := make(map[string]*ir.Node)
	out, err := buildInterned(p, env, g, consts)
	if err != nil {
		return nil, fmt.Errorf("sexp for graph %s: %w", name, err)
	}
	g.SetOutput(out)
	return g, nil
}

func collectVars(p Pattern, acc []*Var, seen map[*Var]bool) []*Var {
	switch pat := p.(type) {
	case *Call:
		for _, item := range pat.Items {
			acc = collectVars(item, acc, seen)
		}
	case *Var:
		if !seen[pat] {
			seen[pat] = true
			acc = append(acc, pat)
		}
	}
	return acc
}

func buildInterned(p Pattern, env Env, g *ir.Graph, consts map[string]*ir.Node) (*ir.Node, error) {
	switch pat := p.(type) {
	case *Call:
		inputs := make([]*ir.Node, len(pat.Items))
		for i, item := range pat.Items {
			in, err := buildInterned(item, env, g, consts)
			if err != nil {
				return nil, err
			}
			inputs[i] = in
		}
		return ir.NewApply(g, inputs...), nil
	case *ir.Operation, cty.Value:
		key := ir.ConstString(pat)
		if n, ok := consts[key]; ok {
			return n, nil
		}
		n := ir.NewConstant(pat)
		consts[key] = n
		return n, nil
	default:
		return Build(p, env, g)
	}
}
