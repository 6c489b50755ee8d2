package postgres

import (
	"strings"

	"bomcost/internal/ddl"
)

var dialect = ddl.Dialect{Name: "postgres ddl", Quote: ddl.DoubleQuote, IfNotExists: true}

// MapType normalizes a logical type into a Postgres SQL type.
//
//	"int"/"integer"/"bigint"  -> BIGINT
//	"bool"/"boolean"          -> BOOLEAN
//	"float"/"double"          -> DOUBLE PRECISION
//	"date"                    -> DATE
//	"timestamp"/"timestamptz" -> TIMESTAMPTZ
//	everything else           -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BOOLEAN"
	case ddl.Float, "double":
		return "DOUBLE PRECISION"
	case "date":
		return "DATE"
	case ddl.Timestamp, "timestamptz":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement.
func BuildCreateTableSQL(table string, cols []ddl.Column) (string, error) {
	return dialect.BuildCreateTableSQL(ddl.FromColumns(table, cols, MapType))
}
