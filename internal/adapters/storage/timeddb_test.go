package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"trainingplan/internal/adapters/http/perf"
)

func newTimedTestDB(t *testing.T) (*TimedDB, *perf.Collector) {
	t.Helper()
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	collector := perf.NewCollector(100)
	return NewTimedDB(db, collector), collector
}

// TestQueryLabel tests statement labelling for the perf collector.
func TestQueryLabel(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT value FROM local_storage WHERE key = ?", "SELECT local_storage"},
		{"INSERT INTO local_storage (key, value) VALUES (?, ?)", "INSERT local_storage"},
		{"delete from local_storage", "DELETE local_storage"},
		{"  PRAGMA journal_mode", "PRAGMA"},
		{"", "query"},
	}
	for _, tt := range tests {
		if got := queryLabel(tt.query); got != tt.want {
			t.Errorf("queryLabel(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

// TestTimedDB_RecordsEachStatement verifies every call lands in the collector.
func TestTimedDB_RecordsEachStatement(t *testing.T) {
	tdb, collector := newTimedTestDB(t)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)", "k", "v", "now"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	var v string
	if err := tdb.QueryRowContext(ctx, "SELECT value FROM local_storage WHERE key = ?", "k").Scan(&v); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if v != "v" {
		t.Fatalf("value = %q, want v", v)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT key FROM local_storage")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()

	if got := collector.TotalRecorded(); got != 3 {
		t.Fatalf("TotalRecorded = %d, want 3", got)
	}
	snap := collector.Snapshot(time.Time{}, 10)
	if len(snap.SlowestQueries) != 2 {
		t.Fatalf("distinct query labels = %d, want 2 (%+v)", len(snap.SlowestQueries), snap.SlowestQueries)
	}
}

// TestTimedDB_ErrorPassthrough verifies SQL errors are returned unchanged and still timed.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	tdb, collector := newTimedTestDB(t)

	var v string
	err := tdb.QueryRowContext(context.Background(), "SELECT value FROM local_storage WHERE key = ?", "missing").Scan(&v)
	if err != sql.ErrNoRows {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO nonexistent_table VALUES (1)"); err == nil {
		t.Fatal("expected error from invalid SQL")
	}
	if collector.TotalRecorded() != 2 {
		t.Fatalf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

// TestTimedDB_NilCollector verifies TimedDB works without a collector.
func TestTimedDB_NilCollector(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	tdb := NewTimedDB(db, nil)
	tx, err := tdb.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
}

// TestSlowQueryThreshold_Env verifies the env override and its fallback.
func TestSlowQueryThreshold_Env(t *testing.T) {
	t.Setenv("PLAN_SLOW_QUERY_MS", "7")
	if got := SlowQueryThreshold(); got != 7*time.Millisecond {
		t.Fatalf("threshold = %v, want 7ms", got)
	}
	t.Setenv("PLAN_SLOW_QUERY_MS", "nope")
	if got := SlowQueryThreshold(); got != DefaultSlowQueryMs*time.Millisecond {
		t.Fatalf("threshold = %v, want default", got)
	}
}
