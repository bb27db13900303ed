package store

import (
	"database/sql"

	"modernc.org/sqlite"
)

func init() {
	// modernc.org/sqlite registers itself as "sqlite", but the rest of the
	// codebase and its tooling expect the conventional "sqlite3" name.
	sql.Register("sqlite3", &sqlite.Driver{})
}
