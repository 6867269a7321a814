package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	devenv "sysaid-bridge/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func isRemote(location string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(location, scheme) {
			return true
		}
	}
	return false
}

// OpenDB opens a local sqlite file (or `:memory:`), or a remote libsql
// database when location is a libsql/http(s) url, then applies schema.
// schema statements must be idempotent (CREATE ... IF NOT EXISTS).
func OpenDB(schema, location string) (*sql.DB, error) {
	if isRemote(location) {
		db, err := sql.Open("libsql", location)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return migrate(db, schema)
	}

	path, err := devenv.ResolvePath(location)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	if path != ":memory:" {
		err = os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	return migrate(db, schema)
}

func migrate(db *sql.DB, schema string) (*sql.DB, error) {
	if schema == "" {
		return db, nil
	}
	_, err := db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
