// Package all registers every built-in storage backend. Import it for side
// effects:
//
//	import _ "sblar/internal/storage/all"
//
// after which storage.New accepts the kinds "sqlite", "postgres", "mssql"
// and "mysql".
package all

import (
	_ "sblar/internal/storage/mssql"
	_ "sblar/internal/storage/mysql"
	_ "sblar/internal/storage/postgres"
	_ "sblar/internal/storage/sqlite"
)
