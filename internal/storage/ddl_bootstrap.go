package storage

import (
	"context"
	"fmt"
	"sync"

	"bomcost/internal/ddl"
)

// DDLBootstrapper creates table in repo when it does not exist yet, mapping
// the logical columns onto the backend's types.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, cols []ddl.Column) error

// CreateTableFunc renders an idempotent CREATE TABLE statement for a
// backend dialect.
type CreateTableFunc func(table string, cols []ddl.Column) (string, error)

var bootstrappers sync.Map // kind -> DDLBootstrapper

// RegisterDDL installs fn for kind, replacing any earlier one.
func RegisterDDL(kind string, fn DDLBootstrapper) { bootstrappers.Store(kind, fn) }

// RegisterBackend registers open under kind together with a bootstrapper
// that executes the statement built by create.
func RegisterBackend(kind string, open Factory, create CreateTableFunc) {
	Register(kind, open)
	RegisterDDL(kind, func(ctx context.Context, repo Repository, table string, cols []ddl.Column) error {
		stmt, err := create(table, cols)
		if err != nil {
			return err
		}
		return repo.Exec(ctx, stmt)
	})
}

// EnsureTable runs the bootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, cols []ddl.Column) error {
	fn, ok := bootstrappers.Load(kind)
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn.(DDLBootstrapper)(ctx, repo, table, cols)
}
