// Package storage holds the backend-agnostic contracts of the report export
// sink: a Repository that bulk-loads rows, a factory registry keyed by
// storage kind, and per-kind DDL bootstrappers.
package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Repository is a destination table that accepts bulk loads.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and returns the number of
	// rows written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind    string
	DSN     string
	Table   string
	Columns []string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// registry maps a storage kind to the factory that opens it.
type registry struct {
	mu sync.RWMutex
	m  map[string]Factory
}

func (r *registry) set(kind string, f Factory) {
	r.mu.Lock()
	r.m[kind] = f
	r.mu.Unlock()
}

func (r *registry) get(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.m[kind]
	return f, ok
}

func (r *registry) kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.m))
}

var backends = &registry{m: map[string]Factory{}}

// Register installs f for kind, replacing any earlier factory. Backend
// packages call it from init; see storage/all.
func Register(kind string, f Factory) { backends.set(kind, f) }

// New opens a Repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	f, ok := backends.get(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %v)", cfg.Kind, backends.kinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order.
func ListKinds() []string { return backends.kinds() }
