package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bomcost/internal/costing"
	"bomcost/internal/ddl"
)

// DefaultTable receives exports when no table is configured.
const DefaultTable = "material_costs"

// DefaultBatchSize is the number of rows per CopyFrom call.
const DefaultBatchSize = 500

// ExportColumns is the layout of the export table.
var ExportColumns = []ddl.Column{
	{Name: "family", Type: ddl.Text, Required: true},
	{Name: "material", Type: ddl.Text, Required: true},
	{Name: "total_usage", Type: ddl.Float, Required: true},
	{Name: "unit_price", Type: ddl.Float},
	{Name: "total_price", Type: ddl.Float},
	{Name: "snapshot", Type: ddl.Text, Required: true},
	{Name: "generated_at", Type: ddl.Timestamp, Required: true},
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []ddl.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// ExportRows shapes costed usage into rows aligned to ExportColumns. Missing
// prices become NULL.
func ExportRows(costed []costing.CostedUsage, family, snapshot string, at time.Time) [][]any {
	at = at.UTC()
	out := make([][]any, 0, len(costed))
	for _, c := range costed {
		out = append(out, []any{
			family,
			c.Material,
			c.TotalUsage,
			nullable(c.UnitPrice),
			nullable(c.TotalPrice),
			snapshot,
			at,
		})
	}
	return out
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Export streams rows into repo in batches and returns the number written.
func Export(ctx context.Context, repo Repository, rows [][]any, batchSize int, log *zap.Logger) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	n, err := LoadBatches(ctx, ColumnNames(ExportColumns), in, batchSize, repo.CopyFrom, log)
	if err != nil {
		return n, fmt.Errorf("storage: export: %w", err)
	}
	return n, nil
}

// Sink is an opened export destination.
type Sink struct {
	Repo Repository
	Kind string
}

// Open opens the repository for kind and, when autoCreate is set, creates the
// export table. table defaults to DefaultTable.
func Open(ctx context.Context, kind, dsn, table string, autoCreate bool) (*Sink, error) {
	if table == "" {
		table = DefaultTable
	}
	repo, err := New(ctx, Config{Kind: kind, DSN: dsn, Table: table, Columns: ColumnNames(ExportColumns)})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", kind, err)
	}
	if autoCreate {
		if err := EnsureTable(ctx, kind, repo, table, ExportColumns); err != nil {
			repo.Close()
			return nil, fmt.Errorf("storage: ensure table %s: %w", table, err)
		}
	}
	return &Sink{Repo: repo, Kind: kind}, nil
}

// Close releases the repository.
func (s *Sink) Close() { s.Repo.Close() }
