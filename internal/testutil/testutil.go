// Package testutil provides shared helpers for the package test suites:
// graph construction from pattern text, isomorphism assertions, and an
// end-to-end optimization check mirroring how callers drive the core.
package testutil

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/clone"
	"github.com/wisplang/wisp/internal/ir"
	"github.com/wisplang/wisp/internal/manager"
	"github.com/wisplang/wisp/internal/opt"
	"github.com/wisplang/wisp/internal/pattern"
	"github.com/wisplang/wisp/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// NewRegistry returns a registry preloaded with the operations the test
// suites rewrite: the fake primitives P, Q, R and scalar arithmetic.
func NewRegistry() *registry.Registry {
	reg := registry.New()
	for _, name := range []string{"P", "Q", "R", "add", "mul", "sub", "div"} {
		reg.Define(name)
	}
	return reg
}

// MustGraph parses pattern text and converts it into a graph, with
// variables as parameters in first-appearance order.
func MustGraph(t *testing.T, reg *registry.Registry, name, src string, params ...string) *ir.Graph {
	t.Helper()
	p := pattern.NewParser(reg)
	vars := make([]*pattern.Var, len(params))
	for i, pname := range params {
		vars[i] = p.Var(pname)
	}
	sexp, err := p.Parse(src)
	require.NoError(t, err)
	g, err := pattern.SexpToGraphParams(name, sexp, vars...)
	require.NoError(t, err)
	return g
}

// MustRule compiles a pattern-substitution rule from match and rewrite
// text, sharing one variable table between the two patterns.
func MustRule(t *testing.T, reg *registry.Registry, name, match, rewrite string) *opt.Rule {
	t.Helper()
	p := pattern.NewParser(reg)
	lhs, err := p.Parse(match)
	require.NoError(t, err)
	rhs, err := p.Parse(rewrite)
	require.NoError(t, err)
	return opt.NewSub(name, lhs, rhs)
}

// RequireIsomorphic fails the test unless the two graphs are isomorphic.
func RequireIsomorphic(t *testing.T, want, got *ir.Graph) {
	t.Helper()
	iso, err := clone.Isomorphic(want, got)
	require.NoError(t, err)
	require.True(t, iso, "graphs are not isomorphic:\n want %s\n  got %s",
		ir.GraphSexp(want), ir.GraphSexp(got))
}

// RequireNotIsomorphic fails the test if the two graphs are isomorphic.
func RequireNotIsomorphic(t *testing.T, a, b *ir.Graph) {
	t.Helper()
	iso, err := clone.Isomorphic(a, b)
	require.NoError(t, err)
	require.False(t, iso, "graphs are unexpectedly isomorphic:\n %s", ir.GraphSexp(a))
}

// CheckOpt optimizes a total clone of before to equilibrium under the
// given rules and asserts the result is isomorphic to after. Optimizing a
// clone means the caller's graph survives for later comparison, the same
// way production callers snapshot a graph before destructive rewriting.
// It returns the run statistics.
func CheckOpt(t *testing.T, before, after *ir.Graph, rules ...*opt.Rule) *opt.Stats {
	t.Helper()
	work, err := clone.Total(before)
	require.NoError(t, err)

	o := opt.New(manager.New(), rules, opt.Options{MaxIterations: 10000})
	stats, err := o.Run(context.Background(), work)
	require.NoError(t, err)

	RequireIsomorphic(t, after, work)
	return stats
}

// LogContains reports whether the captured log output contains the given
// substring.
func LogContains(buf *SafeBuffer, substr string) bool {
	return strings.Contains(buf.String(), substr)
}
