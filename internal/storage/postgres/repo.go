// Package postgres loads exports into Postgres with the pgx COPY protocol.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config names the database and the target table. Table may carry a schema,
// e.g. "report.material_costs".
type Config struct {
	DSN   string
	Table string
}

// Repository COPYs rows into one table over a pgx pool.
type Repository struct {
	pool  *pgxpool.Pool
	cfg   Config
	table pgx.Identifier
}

// NewRepository connects and pings the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	table := splitFQN(cfg.Table)
	if len(table) == 0 {
		return nil, errors.New("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg, table: table}, nil
}

// CopyFrom streams rows with COPY FROM STDIN.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, r.table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, pgError("copy into "+r.table.Sanitize(), err)
	}
	return n, nil
}

// Exec runs sql on the pool.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return pgError("exec", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// pgError surfaces the server detail and SQLSTATE when pgx reports them.
func pgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres: %s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

// splitFQN turns "report.material_costs" into {"report", "material_costs"},
// dropping blank parts.
func splitFQN(fqn string) pgx.Identifier {
	var id pgx.Identifier
	for p := range strings.SplitSeq(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}
