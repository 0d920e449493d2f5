package store

import (
	"context"
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	// Driver is "memory", "sqlite" or "postgres". Empty means sqlite.
	Driver string
	// Dir holds the SQLite database.
	Dir string
	// DSN is the Postgres connection string.
	DSN string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (RunStore, error) {
	switch opts.Driver {
	case "memory":
		return NewInMemoryRunStore(), nil
	case "", "sqlite":
		if opts.Dir == "" {
			return nil, fmt.Errorf("sqlite store requires a directory")
		}
		s, err := NewSQLiteRunStore(ctx, opts.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresRunStore(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", opts.Driver)
	}
}
