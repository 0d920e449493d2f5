// Package export writes finished run reports as JSON objects to a blob sink.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/nvandessel/osteon/internal/store"
)

// Sink stores opaque objects by key.
type Sink interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error
	// Driver names the backend ("fs" or "s3").
	Driver() string
}

// Options selects and configures a sink.
type Options struct {
	Driver    string
	Dir       string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Open returns the sink named by opts.Driver. An empty or "none" driver
// returns a nil sink, which Exporter treats as disabled.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch opts.Driver {
	case "", "none":
		return nil, nil
	case "fs":
		sink, err := NewFSSink(opts.Dir)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case "s3":
		sink, err := NewS3Sink(ctx, S3Config{
			Bucket:    opts.Bucket,
			Region:    opts.Region,
			Endpoint:  opts.Endpoint,
			PathStyle: opts.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown export driver: %s", opts.Driver)
	}
}

// Exporter writes runs to a sink under a key prefix.
type Exporter struct {
	sink   Sink
	prefix string
}

// NewExporter wraps sink. A nil sink yields a disabled exporter.
func NewExporter(sink Sink, prefix string) *Exporter {
	return &Exporter{sink: sink, prefix: strings.Trim(prefix, "/")}
}

// Enabled reports whether runs will be written anywhere.
func (e *Exporter) Enabled() bool {
	return e != nil && e.sink != nil
}

// Driver names the backing sink, or "" when disabled.
func (e *Exporter) Driver() string {
	if !e.Enabled() {
		return ""
	}
	return e.sink.Driver()
}

// Key returns the object key of a run: <prefix>/<scenario>/<id>.json.
func (e *Exporter) Key(run *store.Run) string {
	scenario := run.Scenario
	if scenario == "" {
		scenario = "unnamed"
	}
	return path.Join(e.prefix, sanitize(scenario), run.ID+".json")
}

// ExportRun writes the run as indented JSON and returns its key. A disabled
// exporter does nothing and returns "".
func (e *Exporter) ExportRun(ctx context.Context, run *store.Run) (string, error) {
	if !e.Enabled() {
		return "", nil
	}
	if run == nil || run.ID == "" {
		return "", fmt.Errorf("run with an ID is required")
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	key := e.Key(run)
	if err := e.sink.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("export run %s to %s: %w", run.ID, e.sink.Driver(), err)
	}
	return key, nil
}

// sanitize keeps scenario names usable as a single key segment.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
