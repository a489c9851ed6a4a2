// Package app wires the optimization core together: it loads a rule set
// through a config.Loader, compiles the patterns against an operation
// registry, and runs the equilibrium optimizer (plus the optional CSE
// pass) over a program graph.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/internal/ctxlog"
	"github.com/wisplang/wisp/internal/opt"
	"github.com/wisplang/wisp/internal/pattern"
	"github.com/wisplang/wisp/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	model    *config.Model
	rules    []*opt.Rule
}

// NewApp constructs the application: it builds an isolated logger, loads
// the rule set through the given loader, applies command-line overrides,
// and compiles every rule pattern against a fresh operation registry.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("logger configured")

	model, err := loader.Load(ctx, appConfig.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}
	applyOverrides(&model.Options, appConfig)
	logger.Debug("rule set loaded into unified model",
		"operations", len(model.Operations), "rules", len(model.Rules))

	reg := registry.New()
	for _, name := range model.Operations {
		reg.Define(name)
	}

	rules, err := compileRules(model, reg)
	if err != nil {
		return nil, err
	}
	logger.Debug("rules compiled", "count", len(rules))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		model:    model,
		rules:    rules,
	}, nil
}

// Registry returns the application's operation registry. This is primarily
// for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Model returns the loaded rule-set model. This is primarily for testing.
func (a *App) Model() *config.Model { return a.model }

// compileRules turns the textual rule definitions into executable rules.
// Each rule gets its own parser so its match and rewrite patterns share
// one variable table without leaking variables across rules.
func compileRules(model *config.Model, reg *registry.Registry) ([]*opt.Rule, error) {
	rules := make([]*opt.Rule, 0, len(model.Rules))
	for _, def := range model.Rules {
		p := pattern.NewParser(reg)
		match, err := p.Parse(def.Match)
		if err != nil {
			return nil, fmt.Errorf("rule %s: match pattern: %w", def.Name, err)
		}
		rewrite, err := p.Parse(def.Rewrite)
		if err != nil {
			return nil, fmt.Errorf("rule %s: rewrite pattern: %w", def.Name, err)
		}
		rules = append(rules, opt.NewSub(def.Name, match, rewrite))
	}
	return rules, nil
}

func applyOverrides(opts *config.Options, cfg *Config) {
	if cfg.MaxIterations != nil {
		opts.MaxIterations = *cfg.MaxIterations
	}
	if cfg.Watch != nil {
		opts.Watch = *cfg.Watch
	}
	if cfg.CSE != nil {
		opts.CSE = *cfg.CSE
	}
}
