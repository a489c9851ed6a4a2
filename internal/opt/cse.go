package opt

import (
	"context"
	"fmt"
	"strings"

	"github.com/wisplang/wisp/internal/ctxlog"
	"github.com/wisplang/wisp/internal/ir"
	"github.com/wisplang/wisp/internal/manager"
)

// CSE runs one bottom-up common-subexpression-elimination pass over g,
// closures included, aliasing structurally identical pure subexpressions
// to a single shared node through the manager. Constants are keyed by
// value, parameters by identity, and Apply nodes by their owning graph,
// operation, and canonicalized input identities; inputs are canonicalized
// before any node that uses them, so chains of duplicates collapse in one
// pass. It returns the number of nodes merged away; the reachable node
// count never increases.
func CSE(ctx context.Context, mgr *manager.Manager, g *ir.Graph) (int, error) {
	if err := mgr.Manage(ctx, g); err != nil {
		return 0, fmt.Errorf("cse: %w", err)
	}

	table := make(map[string]*ir.Node)
	ids := make(map[*ir.Node]int)
	idOf := func(n *ir.Node) int {
		if id, ok := ids[n]; ok {
			return id
		}
		id := len(ids)
		ids[n] = id
		return id
	}

	merges := 0
	for _, n := range postorder(g.Output()) {
		if !mgr.Contains(n) {
			continue // already merged away earlier in the pass
		}
		key := canonicalKey(n, idOf)
		if rep, ok := table[key]; ok && rep != n {
			mgr.Replace(ctx, n, rep)
			merges++
			continue
		}
		table[key] = n
		idOf(n)
	}

	ctxlog.FromContext(ctx).Debug("cse finished",
		"graph", g.Name, "merges", merges)
	return merges, nil
}

// canonicalKey builds the dedup-table key for a node. Because replacements
// rewire input edges in place, a node's inputs already point at their
// representatives by the time the node itself is keyed.
func canonicalKey(n *ir.Node, idOf func(*ir.Node) int) string {
	switch {
	case n.IsConstant():
		if sub := n.ConstGraph(); sub != nil {
			// Graph references are identity, not value.
			return fmt.Sprintf("c:graph:%p", sub)
		}
		return "c:" + ir.ConstString(n.Value)
	case n.IsParameter():
		return fmt.Sprintf("p:%d", idOf(n))
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "a:%p", n.Graph())
		for _, in := range n.Inputs {
			fmt.Fprintf(&b, ":%d", idOf(in))
		}
		return b.String()
	}
}

// postorder lists every node reachable from root with inputs before their
// users, descending through graph constants, deterministically.
func postorder(root *ir.Node) []*ir.Node {
	seen := make(map[*ir.Node]bool)
	var out []*ir.Node
	var visit func(n *ir.Node)
	visit = func(n *ir.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		for _, in := range n.Inputs {
			visit(in)
		}
		if sub := n.ConstGraph(); sub != nil {
			visit(sub.Output())
		}
		out = append(out, n)
	}
	visit(root)
	return out
}
