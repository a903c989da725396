package db

import "database/sql"

// DB wraps the shared sql.DB handle so other packages depend on
// this package instead of database/sql directly.
type DB struct {
	*sql.DB
}
