// Package mssql loads exports into SQL Server with the go-mssqldb bulk copy
// API. One CopyFrom call is one bulk insert committed in its own
// transaction.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config names the server and the target table, e.g. "dbo.material_costs".
type Config struct {
	DSN   string
	Table string
}

// Repository bulk-copies rows into one table.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens the pool and pings the server.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("mssql: table must not be empty")
	}
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, nil
}

// CopyFrom sends rows through a single bulk copy and reports the server's
// affected row count. Any failure rolls the transaction back.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	bulk, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, mssql.BulkOptions{Tablock: true}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk copy into %s: %w", r.cfg.Table, err)
	}
	if err = sendRows(ctx, bulk, rows); err != nil {
		_ = bulk.Close()
		return 0, err
	}

	// An Exec without arguments flushes the buffered rows.
	res, err := bulk.ExecContext(ctx)
	if cerr := bulk.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("mssql: finish bulk copy: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

func sendRows(ctx context.Context, bulk *sql.Stmt, rows [][]any) error {
	for i, row := range rows {
		if _, err := bulk.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	return nil
}

// Exec runs sqlText on the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}

// Close closes the pool. It is safe on a Repository that never opened.
func (r *Repository) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}
