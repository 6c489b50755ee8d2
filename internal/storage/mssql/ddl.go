package mssql

import (
	"fmt"
	"strings"

	"bomcost/internal/ddl"
)

// T-SQL has no CREATE TABLE IF NOT EXISTS; BuildCreateTableSQL adds an
// OBJECT_ID guard instead.
var dialect = ddl.Dialect{Name: "mssql ddl", Quote: quoteIdent}

// quoteIdent quotes a single identifier segment with brackets, escaping any
// closing bracket: weird]id -> [weird]]id].
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// MapType maps a logical type into a SQL Server column type. Unknown or
// empty kinds fall back to NVARCHAR(MAX).
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BIT"
	case "date":
		return "DATE"
	case ddl.Timestamp, "datetime", "timestamptz":
		return "DATETIME2"
	case ddl.Float, "double":
		return "FLOAT"
	case "numeric", "decimal":
		return "DECIMAL(38, 10)"
	case "uuid":
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTableSQL returns a T-SQL script that creates table when it does
// not exist yet:
//
//	IF OBJECT_ID(N'[dbo].[costs]', N'U') IS NULL
//	BEGIN
//	CREATE TABLE [dbo].[costs] (
//	  ...
//	);
//	END;
func BuildCreateTableSQL(table string, cols []ddl.Column) (string, error) {
	create, err := dialect.BuildCreateTableSQL(ddl.FromColumns(table, cols, MapType))
	if err != nil {
		return "", err
	}
	name := strings.ReplaceAll(dialect.QuoteFQN(table), "'", "''")
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n%s\nEND;", name, create), nil
}
