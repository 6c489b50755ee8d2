package sqlite

import (
	"strings"

	"bomcost/internal/ddl"
)

var dialect = ddl.Dialect{Name: "sqlite ddl", Quote: ddl.DoubleQuote, IfNotExists: true}

// MapType maps a logical type to a SQLite column affinity. Timestamps are
// stored as ISO-8601 TEXT.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint", "bool", "boolean":
		return "INTEGER"
	case ddl.Float, "double", "real":
		return "REAL"
	case "numeric", "decimal":
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement for
// table with the logical cols.
func BuildCreateTableSQL(table string, cols []ddl.Column) (string, error) {
	return dialect.BuildCreateTableSQL(ddl.FromColumns(table, cols, MapType))
}
