package ddl

import (
	"strings"
	"testing"
)

// TestBuildCreateTableSQL checks rendering, quoting and primary-key handling.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	d := Dialect{Name: "test ddl", Quote: DoubleQuote, IfNotExists: true}
	sql, err := d.BuildCreateTableSQL(TableDef{
		FQN: "main.material_costs",
		Columns: []ColumnDef{
			{Name: "material", SQLType: "TEXT", Nullable: true, PrimaryKey: true},
			{Name: "family", SQLType: "TEXT", PrimaryKey: true},
			{Name: "total_usage", SQLType: "REAL", Nullable: true},
			{Name: "generated_at", SQLType: "TEXT", Default: "CURRENT_TIMESTAMP"},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}

	want := "CREATE TABLE IF NOT EXISTS \"main\".\"material_costs\" (\n" +
		"  \"material\" TEXT NOT NULL,\n" +
		"  \"family\" TEXT NOT NULL,\n" +
		"  \"total_usage\" REAL,\n" +
		"  \"generated_at\" TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,\n" +
		"  PRIMARY KEY (\"family\", \"material\")\n" +
		");"
	if sql != want {
		t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", sql, want)
	}
}

// TestBuildCreateTableSQLErrors covers the validation failures.
func TestBuildCreateTableSQLErrors(t *testing.T) {
	t.Parallel()

	d := Dialect{Name: "test ddl"}
	tests := []struct {
		name string
		def  TableDef
	}{
		{"empty fqn", TableDef{Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}},
		{"no columns", TableDef{FQN: "t"}},
		{"empty column name", TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "TEXT"}}}},
		{"missing type", TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.BuildCreateTableSQL(tc.def)
			if err == nil {
				t.Fatalf("BuildCreateTableSQL() error = nil, want non-nil")
			}
			if !strings.HasPrefix(err.Error(), "test ddl:") {
				t.Fatalf("error %q lacks dialect prefix", err)
			}
		})
	}
}

// TestFromColumns verifies type mapping and nullability.
func TestFromColumns(t *testing.T) {
	t.Parallel()

	td := FromColumns("costs", []Column{
		{Name: "material", Type: Text, Required: true},
		{Name: "unit_price", Type: Float},
	}, strings.ToUpper)

	if td.FQN != "costs" || len(td.Columns) != 2 {
		t.Fatalf("FromColumns() = %+v", td)
	}
	if c := td.Columns[0]; c.SQLType != "TEXT" || c.Nullable {
		t.Fatalf("material column = %+v, want TEXT NOT NULL", c)
	}
	if c := td.Columns[1]; c.SQLType != "FLOAT" || !c.Nullable {
		t.Fatalf("unit_price column = %+v, want nullable FLOAT", c)
	}
}

// TestQuoteFQN checks that empty segments are dropped and quotes escaped.
func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	d := Dialect{Quote: DoubleQuote}
	if got, want := d.QuoteFQN(`public..we"ird`), `"public"."we""ird"`; got != want {
		t.Fatalf("QuoteFQN() = %s, want %s", got, want)
	}
}
