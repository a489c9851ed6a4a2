package ir

// Graph is a function in the IR: an ordered sequence of Parameter nodes and
// exactly one designated output node (the body root). Graphs nest: an Apply
// whose operation position is a Constant holding a *Graph is a call, and a
// nested graph's body may reference nodes owned by an enclosing graph (a
// free variable reference, never an ownership relation).
type Graph struct {
	// Name identifies the graph in printed output and diagnostics.
	Name string

	params []*Node
	output *Node

	owner any
}

// NewGraph returns an empty graph with no parameters and no output.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// AddParameter appends a fresh Parameter node to the graph's formal
// parameter list and returns it.
func (g *Graph) AddParameter(name string) *Node {
	p := &Node{kind: KindParameter, Name: name, graph: g}
	g.params = append(g.params, p)
	return p
}

// Parameters returns the graph's ordered formal parameters. The returned
// slice is the graph's own; callers must not mutate it.
func (g *Graph) Parameters() []*Node { return g.params }

// Output returns the graph's designated output node, nil if unset.
func (g *Graph) Output() *Node { return g.output }

// SetOutput designates the graph's output node.
func (g *Graph) SetOutput(n *Node) { g.output = n }

// Owner returns the manager currently holding this graph, or nil.
func (g *Graph) Owner() any { return g.owner }

// SetOwner records the holding manager. Called by the manager package only.
func (g *Graph) SetOwner(owner any) { g.owner = owner }

func (g *Graph) String() string { return g.Name }
