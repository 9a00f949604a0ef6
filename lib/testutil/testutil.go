package testutil

import (
	"database/sql"
	"testing"

	"cnavi/lib/sqliteutil"
)

// OpenDB opens an in-memory database with schema applied, it is closed when
// the test ends.
func OpenDB(t testing.TB, schema string) *sql.DB {
	database, err := sqliteutil.OpenDB(schema, sqliteutil.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
