// Package hcl implements the config.Loader interface for HCL rule-set
// files: it discovers .hcl files recursively, decodes them through the
// schema package, and merges them into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/internal/ctxlog"
	"github.com/wisplang/wisp/internal/fsutil"
	"github.com/wisplang/wisp/internal/schema"
)

// Loader is the HCL-specific implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .hcl file under the given paths (files or directories)
// and merges them into one model. Operations and rules accumulate in file
// order; options set in a later file override earlier ones.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find rule files in %s: %w", path, err)
		}
		files = append(files, found...)
	}
	logger.Debug("rule files discovered", "count", len(files))

	model := &config.Model{}
	seenOps := make(map[string]bool)
	parser := hclparse.NewParser()
	for _, file := range files {
		parsed, err := parseRuleFile(file, parser)
		if err != nil {
			return nil, err
		}
		for _, op := range parsed.Operations {
			if !seenOps[op.Name] {
				seenOps[op.Name] = true
				model.Operations = append(model.Operations, op.Name)
			}
		}
		for _, rule := range parsed.Rules {
			model.Rules = append(model.Rules, &config.RuleDef{
				Name:    rule.Name,
				Match:   rule.Match,
				Rewrite: rule.Rewrite,
			})
		}
		if parsed.Options != nil {
			mergeOptions(&model.Options, parsed.Options)
		}
	}

	logger.Debug("rule set loaded",
		"operations", len(model.Operations), "rules", len(model.Rules))
	return model, nil
}

func parseRuleFile(filePath string, parser *hclparse.Parser) (*schema.RuleFile, error) {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}

	var parsed schema.RuleFile
	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}
	return &parsed, nil
}

func mergeOptions(dst *config.Options, src *schema.Options) {
	if src.MaxIterations != nil {
		dst.MaxIterations = *src.MaxIterations
	}
	if src.Watch != nil {
		dst.Watch = *src.Watch
	}
	if src.CSE != nil {
		dst.CSE = *src.CSE
	}
}
