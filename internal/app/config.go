package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// RulesPath is an .hcl rule file or a directory of them.
	RulesPath string
	// ProgramPath is the s-expression program to optimize.
	ProgramPath string

	LogFormat string
	LogLevel  string

	// Command-line overrides of the rule file's options block; nil keeps
	// the file value.
	MaxIterations *int
	Watch         *bool
	CSE           *bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.RulesPath == "" {
		return nil, errors.New("RulesPath is a required configuration field and cannot be empty")
	}
	if cfg.ProgramPath == "" {
		return nil, errors.New("ProgramPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
