package ir

import (
	"strings"
)

// Sexp renders a node as an s-expression. Apply nodes print as lists,
// parameters by name, constants by value. Graph constants expand to an
// (fn name (params...) body) form the first time they are seen; later
// references (including self-recursive ones) print as #name.
func Sexp(n *Node) string {
	var b strings.Builder
	writeSexp(&b, n, make(map[*Graph]bool))
	return b.String()
}

// GraphSexp renders a whole graph in the same (fn ...) form used for
// nested graph constants.
func GraphSexp(g *Graph) string {
	var b strings.Builder
	writeGraph(&b, g, make(map[*Graph]bool))
	return b.String()
}

func writeSexp(b *strings.Builder, n *Node, seen map[*Graph]bool) {
	switch {
	case n == nil:
		b.WriteString("()")
	case n.IsApply():
		b.WriteByte('(')
		for i, in := range n.Inputs {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeSexp(b, in, seen)
		}
		b.WriteByte(')')
	case n.IsParameter():
		b.WriteString(n.Name)
	default:
		if sub := n.ConstGraph(); sub != nil {
			writeGraph(b, sub, seen)
			return
		}
		b.WriteString(ConstString(n.Value))
	}
}

func writeGraph(b *strings.Builder, g *Graph, seen map[*Graph]bool) {
	if seen[g] {
		b.WriteString("#" + g.Name)
		return
	}
	seen[g] = true
	b.WriteString("(fn " + g.Name + " (")
	for i, p := range g.Parameters() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Name)
	}
	b.WriteString(") ")
	writeSexp(b, g.Output(), seen)
	b.WriteByte(')')
}
