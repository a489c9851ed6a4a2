package pattern

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/wisplang/wisp/internal/ir"
)

// Build instantiates a replacement pattern into IR under a binding
// environment. Bound variables are substituted with their matched node
// verbatim, so the produced subtree may alias pre-existing shared
// structure. Fresh Apply nodes are created in graph g; g may be nil for
// patterns that create no Apply node.
func Build(p Pattern, env Env, g *ir.Graph) (*ir.Node, error) {
	switch pat := p.(type) {
	case *Call:
		inputs := make([]*ir.Node, len(pat.Items))
		for i, item := range pat.Items {
			in, err := Build(item, env, g)
			if err != nil {
				return nil, err
			}
			inputs[i] = in
		}
		return ir.NewApply(g, inputs...), nil
	case *Var:
		bound, ok := env[pat]
		if !ok {
			return nil, fmt.Errorf("unbound variable %s in replacement", pat)
		}
		return bound, nil
	case *ir.Operation:
		return ir.NewConstant(pat), nil
	case *ir.Graph:
		return ir.NewConstant(pat), nil
	case *ir.Node:
		return pat, nil
	case cty.Value:
		return ir.NewConstant(pat), nil
	default:
		return nil, fmt.Errorf("cannot instantiate pattern element %T", p)
	}
}
