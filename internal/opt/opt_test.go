package opt_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/wisplang/wisp/internal/ir"
	"github.com/wisplang/wisp/internal/manager"
	"github.com/wisplang/wisp/internal/opt"
	"github.com/wisplang/wisp/internal/pattern"
	"github.com/wisplang/wisp/internal/registry"
	"github.com/wisplang/wisp/internal/testutil"
)

func idempotentP(t *testing.T, reg *registry.Registry) *opt.Rule {
	return testutil.MustRule(t, reg, "idempotent_P", "(P (P ?x))", "(P ?x)")
}

func elimR(t *testing.T, reg *registry.Registry) *opt.Rule {
	return testutil.MustRule(t, reg, "elim_R", "(R ?x)", "?x")
}

func TestIdempotent(t *testing.T) {
	reg := testutil.NewRegistry()

	t.Run("single", func(t *testing.T) {
		before := testutil.MustGraph(t, reg, "before", "(P (P ?x))")
		after := testutil.MustGraph(t, reg, "after", "(P ?x)")
		stats := testutil.CheckOpt(t, before, after, idempotentP(t, reg))
		assert.Equal(t, 1, stats.ByRule["idempotent_P"])
	})

	t.Run("chain", func(t *testing.T) {
		before := testutil.MustGraph(t, reg, "before", "(P (P (P (P ?x))))")
		after := testutil.MustGraph(t, reg, "after", "(P ?x)")
		stats := testutil.CheckOpt(t, before, after, idempotentP(t, reg))
		assert.Equal(t, 3, stats.Replacements)
	})

	t.Run("under other operations", func(t *testing.T) {
		before := testutil.MustGraph(t, reg, "before", "(add (P (P ?x)) (P (P ?y)))")
		after := testutil.MustGraph(t, reg, "after", "(add (P ?x) (P ?y))")
		testutil.CheckOpt(t, before, after, idempotentP(t, reg))
	})

	t.Run("no match leaves the graph alone", func(t *testing.T) {
		before := testutil.MustGraph(t, reg, "before", "(Q (P ?x))")
		after := testutil.MustGraph(t, reg, "after", "(Q (P ?x))")
		stats := testutil.CheckOpt(t, before, after, idempotentP(t, reg))
		assert.Zero(t, stats.Replacements)
	})
}

func TestElim(t *testing.T) {
	reg := testutil.NewRegistry()
	before := testutil.MustGraph(t, reg, "before", "(R ?x)")
	after := testutil.MustGraph(t, reg, "after", "?x")
	testutil.CheckOpt(t, before, after, elimR(t, reg))
}

func TestIdempotentAndElim(t *testing.T) {
	reg := testutil.NewRegistry()
	before := testutil.MustGraph(t, reg, "before", "(P (R (P (R (R (P ?x))))))")
	after := testutil.MustGraph(t, reg, "after", "(P ?x)")
	testutil.CheckOpt(t, before, after, idempotentP(t, reg), elimR(t, reg))
}

func TestMultiplyZero(t *testing.T) {
	reg := testutil.NewRegistry()
	mulRight := testutil.MustRule(t, reg, "mul_zero_r", "(mul ?x 0)", "0")
	mulLeft := testutil.MustRule(t, reg, "mul_zero_l", "(mul 0 ?x)", "0")

	t.Run("right", func(t *testing.T) {
		before := testutil.MustGraph(t, reg, "before", "(mul (P ?x) 0)")
		after := testutil.MustGraph(t, reg, "after", "0", "x")
		testutil.CheckOpt(t, before, after, mulRight, mulLeft)
	})

	t.Run("left", func(t *testing.T) {
		before := testutil.MustGraph(t, reg, "before", "(mul 0 (P ?x))")
		after := testutil.MustGraph(t, reg, "after", "0", "x")
		testutil.CheckOpt(t, before, after, mulRight, mulLeft)
	})
}

// A rewrite can enable another rule on a node that was already visited:
// eliminating R(0) turns the multiply into mul(y, 0), the multiply into the
// zero, and the add into its left operand.
func TestMultiplyAddElimZero(t *testing.T) {
	reg := testutil.NewRegistry()
	before := testutil.MustGraph(t, reg, "before", "(add ?x (mul ?y (R 0)))")
	after := testutil.MustGraph(t, reg, "after", "?x", "x", "y")
	testutil.CheckOpt(t, before, after,
		elimR(t, reg),
		testutil.MustRule(t, reg, "mul_zero_r", "(mul ?x 0)", "0"),
		testutil.MustRule(t, reg, "add_zero_r", "(add ?x 0)", "?x"),
	)
}

func TestReplaceTwice(t *testing.T) {
	reg := testutil.NewRegistry()
	before := testutil.MustGraph(t, reg, "before", "(Q 0)", "x")
	after := testutil.MustGraph(t, reg, "after", "0", "x")
	stats := testutil.CheckOpt(t, before, after,
		testutil.MustRule(t, reg, "q_zero", "(Q 0)", "(R 0)"),
		elimR(t, reg),
	)
	assert.Equal(t, 2, stats.Replacements)
}

// The replacement node itself must be revisited: rewriting Q(P(x)) to
// Q(R(x)) only reaches Q(x) if the new subtree goes back on the work-list.
func TestRevisitReplacement(t *testing.T) {
	reg := testutil.NewRegistry()
	before := testutil.MustGraph(t, reg, "before", "(Q (P ?x))")
	after := testutil.MustGraph(t, reg, "after", "(Q ?x)")
	testutil.CheckOpt(t, before, after,
		testutil.MustRule(t, reg, "qp_to_qr", "(Q (P ?x))", "(Q (R ?x))"),
		elimR(t, reg),
	)
}

func TestFirstMatchWins(t *testing.T) {
	reg := testutil.NewRegistry()
	toQ := testutil.MustRule(t, reg, "p_to_q", "(P ?x)", "(Q ?x)")
	toR := testutil.MustRule(t, reg, "p_to_r", "(P ?x)", "(R ?x)")

	before := testutil.MustGraph(t, reg, "before", "(P ?x)")

	afterQ := testutil.MustGraph(t, reg, "after", "(Q ?x)")
	stats := testutil.CheckOpt(t, before, afterQ, toQ, toR)
	assert.Equal(t, map[string]int{"p_to_q": 1}, stats.ByRule)

	afterR := testutil.MustGraph(t, reg, "after", "?x")
	stats = testutil.CheckOpt(t, before, afterR, toR, elimR(t, reg))
	assert.Equal(t, 1, stats.ByRule["p_to_r"])
	assert.Equal(t, 1, stats.ByRule["elim_R"])
}

func TestConstantVariable(t *testing.T) {
	reg := testutil.NewRegistry()
	before := testutil.MustGraph(t, reg, "before", "(add (Q 15) (Q ?x))")
	after := testutil.MustGraph(t, reg, "after", "(add (P 15) (Q ?x))")
	stats := testutil.CheckOpt(t, before, after,
		testutil.MustRule(t, reg, "q_const_to_p", "(Q ?v:const)", "(P ?v)"),
	)
	// The non-constant application must be left alone.
	assert.Equal(t, 1, stats.Replacements)
}

func TestProceduralRule(t *testing.T) {
	reg := testutil.NewRegistry()
	opP, err := reg.Lookup("P")
	require.NoError(t, err)

	t.Run("unwinds through the environment", func(t *testing.T) {
		p := pattern.NewParser(reg)
		lhs, err := p.Parse("(Q ?x)")
		require.NoError(t, err)
		v := p.Var("x")
		unwind := opt.NewReplacer("unwind_p", lhs,
			func(_ *opt.Optimizer, _ *ir.Node, env pattern.Env) (*ir.Node, error) {
				arg := env.Get(v)
				for arg.IsApply() && arg.Op().IsOperation(opP) {
					arg = arg.Args()[0]
				}
				return arg, nil
			})

		before := testutil.MustGraph(t, reg, "before", "(Q (P (P (P (P ?x)))))")
		after := testutil.MustGraph(t, reg, "after", "?x")
		testutil.CheckOpt(t, before, after, unwind)
	})

	t.Run("declining falls through to the next rule", func(t *testing.T) {
		p := pattern.NewParser(reg)
		lhs, err := p.Parse("(P ?x)")
		require.NoError(t, err)
		decline := opt.NewReplacer("decline", lhs,
			func(*opt.Optimizer, *ir.Node, pattern.Env) (*ir.Node, error) {
				return nil, nil
			})

		before := testutil.MustGraph(t, reg, "before", "(P ?x)")
		after := testutil.MustGraph(t, reg, "after", "(Q ?x)")
		stats := testutil.CheckOpt(t, before, after, decline,
			testutil.MustRule(t, reg, "p_to_q", "(P ?x)", "(Q ?x)"))
		assert.Zero(t, stats.ByRule["decline"])
	})

	t.Run("error aborts the run", func(t *testing.T) {
		p := pattern.NewParser(reg)
		lhs, err := p.Parse("(P ?x)")
		require.NoError(t, err)
		boom := opt.NewReplacer("boom", lhs,
			func(*opt.Optimizer, *ir.Node, pattern.Env) (*ir.Node, error) {
				return nil, fmt.Errorf("no replacement for you")
			})

		g := testutil.MustGraph(t, reg, "g", "(P ?x)")
		o := opt.New(manager.New(), []*opt.Rule{boom}, opt.Options{MaxIterations: 100})
		_, err = o.Run(context.Background(), g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rule boom")
	})
}

// mustOpConst returns an interned operation wrapped in a constant node.
func mustOpConst(t *testing.T, reg *registry.Registry, name string) *ir.Node {
	t.Helper()
	op, err := reg.Lookup(name)
	require.NoError(t, err)
	return ir.NewConstant(op)
}

func TestMultiFunction(t *testing.T) {
	reg := testutil.NewRegistry()
	three := cty.NumberIntVal(3)

	build := func(stripped bool) *ir.Graph {
		helper := ir.NewGraph("helper")
		a := helper.AddParameter("a")
		b := helper.AddParameter("b")
		left, right := a, b
		if !stripped {
			left = ir.NewApply(helper, mustOpConst(t, reg, "R"), a)
			right = ir.NewApply(helper, mustOpConst(t, reg, "R"), b)
		}
		helper.SetOutput(ir.NewApply(helper, mustOpConst(t, reg, "mul"), left, right))

		main := ir.NewGraph("main")
		x := main.AddParameter("x")
		arg := x
		if !stripped {
			arg = ir.NewApply(main, mustOpConst(t, reg, "R"), x)
		}
		main.SetOutput(ir.NewApply(main, ir.NewConstant(helper), arg, ir.NewConstant(three)))
		return main
	}

	before := build(false)
	after := build(true)
	stats := testutil.CheckOpt(t, before, after, elimR(t, reg))
	assert.Equal(t, 3, stats.ByRule["elim_R"])
}

func TestClosure(t *testing.T) {
	reg := testutil.NewRegistry()

	t.Run("rewrite inside a closure body", func(t *testing.T) {
		// main(x): sub() = Q(P(x)); return sub()
		main := ir.NewGraph("main")
		x := main.AddParameter("x")
		y := ir.NewApply(main, mustOpConst(t, reg, "P"), x)
		sub := ir.NewGraph("sub")
		sub.SetOutput(ir.NewApply(sub, mustOpConst(t, reg, "Q"), y))
		main.SetOutput(ir.NewApply(main, ir.NewConstant(sub)))

		// mainAfter(x): subAfter() = Q(x); return subAfter()
		mainAfter := ir.NewGraph("main")
		xa := mainAfter.AddParameter("x")
		subAfter := ir.NewGraph("sub")
		subAfter.SetOutput(ir.NewApply(subAfter, mustOpConst(t, reg, "Q"), xa))
		mainAfter.SetOutput(ir.NewApply(mainAfter, ir.NewConstant(subAfter)))

		testutil.CheckOpt(t, main, mainAfter,
			testutil.MustRule(t, reg, "qp_to_qr", "(Q (P ?x))", "(Q (R ?x))"),
			elimR(t, reg))
	})

	t.Run("closure output is a free node of the enclosing graph", func(t *testing.T) {
		// main(x): y = R(x); sub() = y; return sub()
		main := ir.NewGraph("main")
		x := main.AddParameter("x")
		y := ir.NewApply(main, mustOpConst(t, reg, "R"), x)
		sub := ir.NewGraph("sub")
		sub.SetOutput(y)
		main.SetOutput(ir.NewApply(main, ir.NewConstant(sub)))

		mainAfter := ir.NewGraph("main")
		xa := mainAfter.AddParameter("x")
		subAfter := ir.NewGraph("sub")
		subAfter.SetOutput(xa)
		mainAfter.SetOutput(ir.NewApply(mainAfter, ir.NewConstant(subAfter)))

		testutil.CheckOpt(t, main, mainAfter, elimR(t, reg))
	})
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	reg := testutil.NewRegistry()
	g := testutil.MustGraph(t, reg, "g", "(P (P (P ?x)))")
	o := opt.New(manager.New(), []*opt.Rule{idempotentP(t, reg)}, opt.Options{MaxIterations: 1000})

	first, err := o.Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Replacements)

	second, err := o.Run(context.Background(), g)
	require.NoError(t, err)
	assert.Zero(t, second.Replacements)
}

func TestMaxIterations(t *testing.T) {
	reg := testutil.NewRegistry()
	grow := testutil.MustRule(t, reg, "grow", "(P ?x)", "(P (P ?x))")
	g := testutil.MustGraph(t, reg, "g", "(P ?x)")

	o := opt.New(manager.New(), []*opt.Rule{grow}, opt.Options{MaxIterations: 20})
	stats, err := o.Run(context.Background(), g)
	require.Error(t, err)
	assert.ErrorIs(t, err, opt.ErrNotConverged)
	assert.Equal(t, 21, stats.Pops)
}

func TestWatchMode(t *testing.T) {
	reg := testutil.NewRegistry()
	g := testutil.MustGraph(t, reg, "g", "(P (P ?x))")
	for _, n := range ir.Reachable(g.Output()) {
		n.Type = "int"
	}
	x := g.Parameters()[0]

	o := opt.New(manager.New(), []*opt.Rule{idempotentP(t, reg)}, opt.Options{
		MaxIterations: 1000,
		Watch:         true,
	})
	_, err := o.Run(context.Background(), g)
	require.NoError(t, err)

	marked := o.MarkedNodes()
	require.NotEmpty(t, marked)
	for _, n := range marked {
		assert.Nil(t, n.Type)
	}
	assert.Contains(t, marked, g.Output())
	// The aliased argument was not created by the rewrite and keeps its
	// annotation.
	assert.Equal(t, "int", x.Type)
	assert.NotContains(t, marked, x)
}

func TestOwnershipConflictSurfaces(t *testing.T) {
	reg := testutil.NewRegistry()
	g := testutil.MustGraph(t, reg, "g", "(P ?x)")
	require.NoError(t, manager.New().Manage(context.Background(), g))

	o := opt.New(manager.New(), nil, opt.Options{})
	_, err := o.Run(context.Background(), g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, manager.ErrOwnershipConflict))
}
