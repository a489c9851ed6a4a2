package ir

// Reachable returns every node reachable from the given roots, in a
// deterministic depth-first preorder. Traversal follows Apply inputs and
// descends through Constant graph references into the nested graph's
// output, so nodes of closures are included.
func Reachable(roots ...*Node) []*Node {
	seen := make(map[*Node]bool)
	var out []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, in := range n.Inputs {
			visit(in)
		}
		if sub := n.ConstGraph(); sub != nil {
			visit(sub.Output())
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}

// ReachableGraphs returns g plus every graph transitively reachable from it,
// through graph constants and through the owners of free variable
// references, in a deterministic discovery order.
func ReachableGraphs(g *Graph) []*Graph {
	seenG := map[*Graph]bool{g: true}
	out := []*Graph{g}
	seenN := make(map[*Node]bool)

	var visitNode func(n *Node)
	addGraph := func(sub *Graph) {
		if sub == nil || seenG[sub] {
			return
		}
		seenG[sub] = true
		out = append(out, sub)
		visitNode(sub.Output())
	}
	visitNode = func(n *Node) {
		if n == nil || seenN[n] {
			return
		}
		seenN[n] = true
		addGraph(n.ConstGraph())
		addGraph(n.Graph())
		for _, in := range n.Inputs {
			visitNode(in)
		}
	}
	visitNode(g.Output())
	for _, p := range g.Parameters() {
		seenN[p] = true
	}
	return out
}

// CountNodes returns the number of nodes reachable from the graph's output,
// closures included. CSE never increases this count.
func CountNodes(g *Graph) int {
	return len(Reachable(g.Output()))
}

// FreeVariables returns the nodes referenced from g's own body that are
// owned by a different graph, in a deterministic order. Traversal stays
// inside g: it does not descend into nested graph constants, so captures
// that exist only through a nested closure are not reported here (the
// manager aggregates those).
func FreeVariables(g *Graph) []*Node {
	seen := make(map[*Node]bool)
	var free []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if own := n.Graph(); own != nil && own != g {
			free = append(free, n)
			return
		}
		for _, in := range n.Inputs {
			visit(in)
		}
	}
	visit(g.Output())
	return free
}
