package config

// Model is the unified, format-agnostic representation of a loaded rule
// set: the declared operations, the ordered rewrite rules, and the
// optimizer options. Pattern strings stay textual at this level; they are
// compiled against an operation registry by the app package.
type Model struct {
	// Operations lists every declared operation name, first declaration
	// order, duplicates removed.
	Operations []string
	// Rules holds the rewrite rules in declaration order, which is also
	// the order the optimizer tries them in.
	Rules []*RuleDef
	// Options are the recognized optimizer options.
	Options Options
}

// RuleDef is one rewrite rule as loaded from configuration.
type RuleDef struct {
	Name    string
	Match   string
	Rewrite string
}

// Options are the recognized configuration options of an optimization run.
type Options struct {
	// MaxIterations caps equilibrium work-list pops; zero means uncapped.
	MaxIterations int
	// Watch marks rewritten nodes for downstream re-validation.
	Watch bool
	// CSE runs a common-subexpression-elimination pass after equilibrium.
	CSE bool
}
