// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/wisplang/wisp/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("wispopt", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
wispopt - equilibrium rewrite optimizer for wisp IR programs.

Usage:
  wispopt -rules RULES_PATH [options] PROGRAM_PATH

Arguments:
  PROGRAM_PATH
    Path to a program written as an s-expression.

Options:
`)
		flagSet.PrintDefaults()
	}

	rulesFlag := flagSet.String("rules", "", "Path to an .hcl rule file or a directory of them.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	maxIterFlag := flagSet.Int("max-iterations", -1, "Cap on equilibrium work-list pops. -1 keeps the rule file's setting.")
	watchFlag := flagSet.Bool("watch", false, "Mark rewritten nodes for downstream re-validation.")
	cseFlag := flagSet.Bool("cse", false, "Run common-subexpression elimination after equilibrium.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *rulesFlag == "" || flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := app.Config{
		RulesPath:   *rulesFlag,
		ProgramPath: flagSet.Arg(0),
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	}
	if *maxIterFlag >= 0 {
		cfg.MaxIterations = maxIterFlag
	}
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "watch":
			cfg.Watch = watchFlag
		case "cse":
			cfg.CSE = cseFlag
		}
	})

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
