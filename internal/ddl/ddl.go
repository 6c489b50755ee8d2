// Package ddl is a small, backend-agnostic model for CREATE TABLE
// statements. Backends supply a Dialect for quoting and a type mapper for
// the logical column types; the rendering rules are shared.
package ddl

import (
	"fmt"
	"sort"
	"strings"
)

// Logical column types. Backends map these to their SQL types.
const (
	Text      = "text"
	Float     = "float"
	Timestamp = "timestamp"
)

// Column is a logical column: a name, a logical type and whether a value is
// required.
type Column struct {
	Name     string
	Type     string
	Required bool
}

// ColumnDef describes a single rendered column.
//
// Fields:
//   - Name: column name, unquoted; quoting happens at render time
//   - SQLType: target SQL type (e.g., TEXT, DOUBLE PRECISION, DATETIME2)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name (FQN, dotted form such as "schema.table")
// and an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromColumns maps logical columns onto a TableDef using mapType.
func FromColumns(fqn string, cols []Column, mapType func(string) string) TableDef {
	defs := make([]ColumnDef, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, ColumnDef{
			Name:     c.Name,
			SQLType:  mapType(c.Type),
			Nullable: !c.Required,
		})
	}
	return TableDef{FQN: fqn, Columns: defs}
}

// Dialect captures the quoting differences between backends.
type Dialect struct {
	// Name prefixes error messages, e.g. "sqlite ddl".
	Name string
	// Quote quotes one identifier segment.
	Quote func(string) string
	// IfNotExists adds IF NOT EXISTS to the statement.
	IfNotExists bool
}

// DoubleQuote quotes an identifier the ANSI way, escaping embedded quotes.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteFQN quotes every dotted segment of fqn with d.Quote. Empty segments
// are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

// BuildCreateTableSQL renders t as:
//
//	CREATE TABLE [IF NOT EXISTS] <fqn> (
//	  <col> <type> [NOT NULL] [DEFAULT <expr>],
//	  ...
//	  [PRIMARY KEY (<pk>, ...)]
//	);
//
// Primary-key columns are always NOT NULL and are listed in sorted order.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	name := d.Name
	if name == "" {
		name = "ddl"
	}
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", name, col)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(col))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(col))
		}
	}
	if len(pks) > 0 {
		sort.Strings(pks)
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	head := "CREATE TABLE "
	if d.IfNotExists {
		head += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n);", head, d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}
