// Package registry provides the symbol/operation resolution table shared by
// the pattern parser, the rule loader, and callers constructing IR by hand.
package registry

import (
	"fmt"
	"sort"

	"github.com/wisplang/wisp/internal/ir"
)

// Registry interns operations by name for a single compilation. Two lookups
// of the same name always return the same *ir.Operation, so operation
// identity comparisons hold across patterns, rules, and hand-built graphs.
type Registry struct {
	ops map[string]*ir.Operation
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*ir.Operation)}
}

// Define interns an operation under the given name, creating it on first
// use. Defining the same name twice returns the original operation.
func (r *Registry) Define(name string) *ir.Operation {
	if op, ok := r.ops[name]; ok {
		return op
	}
	op := &ir.Operation{Name: name}
	r.ops[name] = op
	return op
}

// Lookup resolves a previously defined operation by name.
func (r *Registry) Lookup(name string) (*ir.Operation, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", name)
	}
	return op, nil
}

// Names returns the defined operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
