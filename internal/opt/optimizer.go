package opt

import (
	"context"
	"errors"
	"fmt"

	"github.com/wisplang/wisp/internal/ctxlog"
	"github.com/wisplang/wisp/internal/ir"
	"github.com/wisplang/wisp/internal/manager"
)

// ErrNotConverged is returned when the work-list is still non-empty after
// the configured maximum number of pops.
var ErrNotConverged = errors.New("equilibrium not reached")

// Options configures an optimization run.
type Options struct {
	// MaxIterations caps work-list pops before the run aborts with
	// ErrNotConverged. Zero means no cap: a non-terminating rule set will
	// loop forever, per the scheduler's contract.
	MaxIterations int

	// Watch marks nodes created by rewrites for downstream re-validation:
	// their type annotation is cleared and they are recorded on the
	// optimizer, so a later inference pass can detect an ill-typed rewrite.
	Watch bool
}

// Stats summarizes one Run.
type Stats struct {
	// Pops is the number of work-list pops performed.
	Pops int
	// Replacements is the number of successful rewrites.
	Replacements int
	// ByRule counts successful rewrites per rule name.
	ByRule map[string]int
}

// Optimizer applies an ordered rule list over the graphs of a manager
// until no rule matches anywhere reachable. Rules are tried in order on
// each node and the first match wins; there is no backtracking across
// rules for one node.
type Optimizer struct {
	mgr    *manager.Manager
	rules  []*Rule
	opts   Options
	marked []*ir.Node
}

// New creates an optimizer applying rules through the given manager.
func New(mgr *manager.Manager, rules []*Rule, opts Options) *Optimizer {
	return &Optimizer{mgr: mgr, rules: rules, opts: opts}
}

// Manager returns the manager the optimizer mutates graphs through.
func (o *Optimizer) Manager() *manager.Manager { return o.mgr }

// MarkedNodes returns the nodes recorded by watch mode across all runs, in
// creation order.
func (o *Optimizer) MarkedNodes() []*ir.Node { return o.marked }

// Run optimizes the given graphs (and everything reachable from them,
// closures included) to equilibrium. The work-list is seeded with every
// reachable node and drained FIFO; after each rewrite the replacement, its
// fresh subtree, and every former user of the replaced node are re-queued,
// since any of them may match a rule only in the new context. Termination
// is the caller's responsibility unless MaxIterations is set.
func (o *Optimizer) Run(ctx context.Context, graphs ...*ir.Graph) (*Stats, error) {
	logger := ctxlog.FromContext(ctx)
	if err := o.mgr.Manage(ctx, graphs...); err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}

	stats := &Stats{ByRule: make(map[string]int)}
	queue := o.mgr.AllNodes()
	queued := make(map[*ir.Node]bool, len(queue))
	for _, n := range queue {
		queued[n] = true
	}
	push := func(n *ir.Node) {
		if n != nil && !queued[n] {
			queued[n] = true
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		delete(queued, node)

		stats.Pops++
		if o.opts.MaxIterations > 0 && stats.Pops > o.opts.MaxIterations {
			return stats, fmt.Errorf("optimizer: %w after %d iterations",
				ErrNotConverged, o.opts.MaxIterations)
		}
		if !o.mgr.Contains(node) {
			continue // replaced out from under us since it was queued
		}

		for _, rule := range o.rules {
			res, fired, err := rule.apply(o, node)
			if err != nil {
				return stats, fmt.Errorf("optimizer: %w", err)
			}
			if !fired {
				continue
			}

			fresh := o.freshNodes(res)
			formerUsers := o.mgr.UsersOf(node)
			o.mgr.Replace(ctx, node, res)

			if o.opts.Watch {
				for _, n := range fresh {
					n.Type = nil
					o.marked = append(o.marked, n)
				}
			}

			stats.Replacements++
			stats.ByRule[rule.Name]++
			logger.Debug("rule fired", "rule", rule.Name, "node", res.String())

			push(res)
			for _, n := range ir.Reachable(res) {
				push(n)
			}
			for _, u := range formerUsers {
				push(u.User)
			}
			break
		}
	}

	logger.Debug("equilibrium reached",
		"pops", stats.Pops, "replacements", stats.Replacements)
	return stats, nil
}

// freshNodes returns the nodes of the replacement subtree that the manager
// has not seen yet, i.e. the ones the rewrite created.
func (o *Optimizer) freshNodes(root *ir.Node) []*ir.Node {
	var fresh []*ir.Node
	for _, n := range ir.Reachable(root) {
		if !o.mgr.Contains(n) {
			fresh = append(fresh, n)
		}
	}
	return fresh
}
