// Package all wires every built-in export backend into the storage factory.
// Import it for side effects only:
//
//	import _ "bomcost/internal/storage/all"
//
// which makes the "sqlite", "postgres" and "mssql" kinds available to
// storage.New and storage.EnsureTable.
package all

import (
	_ "bomcost/internal/storage/mssql"
	_ "bomcost/internal/storage/postgres"
	_ "bomcost/internal/storage/sqlite"
)
