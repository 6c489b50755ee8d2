// Package sqlite stores exports in a SQLite file through database/sql and
// the pure-Go modernc driver. SQLite has no bulk-load protocol, so each
// CopyFrom is a prepared INSERT executed per row inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bomcost/internal/ddl"
)

const pingTimeout = 5 * time.Second

// Config selects the database and target table.
type Config struct {
	// DSN is a path or URI such as "file:bomcost.db?_pragma=busy_timeout(5000)".
	// ":memory:" works for tests.
	DSN string
	// Table may be dotted ("main.material_costs"); each part is quoted.
	Table string
}

// Repository writes rows to one SQLite table.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens and pings the database.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	switch {
	case strings.TrimSpace(cfg.DSN) == "":
		return nil, errors.New("sqlite: DSN must not be empty")
	case strings.TrimSpace(cfg.Table) == "":
		return nil, errors.New("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Writers are serialized by SQLite and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", cfg.DSN, err)
	}
	return &Repository{db: db, cfg: cfg}, nil
}

func insertStatement(table string, columns []string) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = ddl.DoubleQuote(c)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + dialect.QuoteFQN(table) + " (" + strings.Join(names, ", ") + ") VALUES (" + marks + ")"
}

// CopyFrom writes rows atomically: a short row or a failed insert rolls the
// whole batch back.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(columns) == 0 {
		return 0, errors.New("sqlite: CopyFrom: no columns")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertStatement(r.cfg.Table, columns))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: CopyFrom: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

// Exec runs sqlText. Blank input does nothing.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Close closes the database. It is safe on a Repository that never opened.
func (r *Repository) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}
