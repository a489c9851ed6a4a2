package config

import "context"

// Loader is the interface for a format-specific rule-set loader. It reads
// every rule file under the given paths and merges them into one model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
