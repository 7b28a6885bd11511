package postgresql

import (
	"github.com/getmynews/getmynews/data/sqldb"

	_ "github.com/lib/pq" // import lib pq here rather than main
)

// PostgreSQL implements the store interface for postgres
type PostgreSQL struct {
	*sqldb.SQLDatabase
}

// GetPostgreSQLDB returns a new postgres db or panics
func GetPostgreSQLDB(dbURL string) *PostgreSQL {
	return &PostgreSQL{sqldb.New("postgres", dbURL)}
}
