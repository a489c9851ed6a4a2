// Package config defines the format-agnostic model of a loaded rewrite
// rule set, along with the Loader interface for reading it from various
// sources. The model is the single source of truth for the app package;
// concrete implementations, such as for HCL, live in separate packages.
package config
