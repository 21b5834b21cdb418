package storage

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInitDB_CreatesLocalStorage verifies the key/value table exists after init.
func TestInitDB_CreatesLocalStorage(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='local_storage'").Scan(&name)
	if err != nil {
		t.Fatalf("local_storage table missing: %v", err)
	}
}

// TestInitDB_Idempotent verifies InitDB can run on an existing schema.
func TestInitDB_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("first InitDB: %v", err)
	}
	if _, err := db.Exec("INSERT INTO local_storage (key, value, updated_at) VALUES ('k', 'v', 'now')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := InitDB(db); err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
	var v string
	if err := db.QueryRow("SELECT value FROM local_storage WHERE key='k'").Scan(&v); err != nil || v != "v" {
		t.Fatalf("existing row lost: v=%q err=%v", v, err)
	}
}
