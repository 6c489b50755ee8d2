package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bomcost/internal/storage"
)

// TestSplitFQN verifies schema-qualified names become pgx identifiers.
func TestSplitFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"material_costs", pgx.Identifier{"material_costs"}},
		{"report.material_costs", pgx.Identifier{"report", "material_costs"}},
		{"report..costs", pgx.Identifier{"report", "costs"}},
	}
	for _, tc := range tests {
		if got := splitFQN(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitFQN(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestBuildCreateTableSQL checks the Postgres type mapping of the export
// table.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	stmt, err := BuildCreateTableSQL("report.material_costs", storage.ExportColumns)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "report"."material_costs"`,
		`"total_usage" DOUBLE PRECISION NOT NULL`,
		`"unit_price" DOUBLE PRECISION,`,
		`"generated_at" TIMESTAMPTZ NOT NULL`,
	} {
		if !strings.Contains(stmt, want) {
			t.Errorf("statement missing %q:\n%s", want, stmt)
		}
	}
}

// TestPgError keeps the detail and SQLSTATE of server errors.
func TestPgError(t *testing.T) {
	t.Parallel()

	base := &pgconn.PgError{Code: "23502", Detail: "Failing row contains (null)."}
	err := pgError("copy", base)
	if !strings.Contains(err.Error(), "Failing row") || !strings.Contains(err.Error(), "23502") {
		t.Fatalf("pgError() = %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("pgError() does not wrap the pgx error")
	}
	if got := pgError("exec", errors.New("boom")).Error(); got != "postgres: exec: boom" {
		t.Fatalf("pgError(plain) = %q", got)
	}
}

func TestNewRepository_RequiresTable(t *testing.T) {
	t.Parallel()

	for _, table := range []string{"", " . "} {
		if _, err := NewRepository(context.Background(), Config{DSN: "postgres://localhost/report", Table: table}); err == nil {
			t.Errorf("table %q accepted", table)
		}
	}
}

// TestRegistration checks the "postgres" factory goes through the open hook.
func TestRegistration(t *testing.T) {
	orig := open
	defer func() { open = orig }()

	var gotCfg Config
	open = func(_ context.Context, cfg Config) (*Repository, error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "report.costs"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotCfg.DSN != "postgres://x" || gotCfg.Table != "report.costs" {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
	repo.Close()
}

func TestRegistration_PropagatesError(t *testing.T) {
	orig := open
	defer func() { open = orig }()

	want := errors.New("dial refused")
	open = func(context.Context, Config) (*Repository, error) { return nil, want }

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres"})
	if !errors.Is(err, want) {
		t.Fatalf("storage.New error = %v, want %v", err, want)
	}
	if repo != nil {
		t.Fatalf("storage.New returned a repository with the error")
	}
}
