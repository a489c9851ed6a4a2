package app

import (
	"context"
	"fmt"
	"os"

	"github.com/wisplang/wisp/internal/ctxlog"
	"github.com/wisplang/wisp/internal/ir"
	"github.com/wisplang/wisp/internal/manager"
	"github.com/wisplang/wisp/internal/opt"
	"github.com/wisplang/wisp/internal/pattern"
)

// Run reads the program, optimizes it to equilibrium under the loaded rule
// set, optionally runs CSE, and prints the optimized graph.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started")

	src, err := os.ReadFile(a.config.ProgramPath)
	if err != nil {
		return fmt.Errorf("failed to read program: %w", err)
	}
	sexp, err := pattern.NewParser(a.registry).Parse(string(src))
	if err != nil {
		return fmt.Errorf("failed to parse program: %w", err)
	}
	graph, err := pattern.SexpToGraph("main", sexp)
	if err != nil {
		return fmt.Errorf("failed to build program graph: %w", err)
	}
	a.logger.Debug("program graph built", "nodes", ir.CountNodes(graph))

	mgr := manager.New()
	optimizer := opt.New(mgr, a.rules, opt.Options{
		MaxIterations: a.model.Options.MaxIterations,
		Watch:         a.model.Options.Watch,
	})
	stats, err := optimizer.Run(ctx, graph)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	a.logger.Info("equilibrium reached",
		"pops", stats.Pops, "replacements", stats.Replacements)

	if a.model.Options.CSE {
		merges, err := opt.CSE(ctx, mgr, graph)
		if err != nil {
			return fmt.Errorf("cse failed: %w", err)
		}
		a.logger.Info("cse finished", "merges", merges)
	}

	fmt.Fprintln(a.outW, ir.GraphSexp(graph))
	a.logger.Debug("App.Run finished")
	return nil
}
