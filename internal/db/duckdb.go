package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	dbInstance *sql.DB
	dbOnce     sync.Once
	dbErr      error
)

// GetDB returns a singleton DuckDB connection
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dbInstance, dbErr = Open()
	})
	return dbInstance, dbErr
}

// Open creates a new in-memory DuckDB connection with the JSON extension loaded
func Open() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("INSTALL json"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install JSON extension: %w", err)
	}

	if _, err := db.Exec("LOAD json"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load JSON extension: %w", err)
	}

	return db, nil
}

// ReadJSONL returns a read_json table expression over a newline delimited
// file with the given column types, e.g. {"id": "VARCHAR"}
func ReadJSONL(path string, columns [][2]string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = fmt.Sprintf("'%s': '%s'", c[0], c[1])
	}
	return fmt.Sprintf(`read_json('%s',
			format = 'newline_delimited',
			columns = {%s}
		)`, quote(path), strings.Join(cols, ", "))
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
