// Package schema defines the HCL wire structures of rule-set files. The
// hcl package decodes into these and translates them to the format-agnostic
// config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// OperationDecl declares one primitive operation name, making it available
// to the patterns of every rule in the rule set.
type OperationDecl struct {
	Name string `hcl:"name,label"`
}

// Rule represents a `rule` block: a named rewrite from a match pattern to
// a rewrite pattern, both written in the textual pattern language.
type Rule struct {
	Name    string `hcl:"name,label"`
	Match   string `hcl:"match"`
	Rewrite string `hcl:"rewrite"`
}

// Options represents the `options` block of a rule-set file.
type Options struct {
	MaxIterations *int  `hcl:"max_iterations,optional"`
	Watch         *bool `hcl:"watch,optional"`
	CSE           *bool `hcl:"cse,optional"`
}

// RuleFile is the top-level structure of one rule-set file.
type RuleFile struct {
	Operations []*OperationDecl `hcl:"operation,block"`
	Rules      []*Rule          `hcl:"rule,block"`
	Options    *Options         `hcl:"options,block"`
	Body       hcl.Body         `hcl:",remain"`
}
