package notify_test

import (
	"testing"

	"trainingplan/internal/adapters/notify"
)

func TestNew_UniqueIDs(t *testing.T) {
	a := notify.New(notify.LevelInfo, "a")
	b := notify.New(notify.LevelInfo, "b")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids = %q, %q", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}
}

func TestRecorder_Errors(t *testing.T) {
	rec := &notify.Recorder{}
	var forwarded int
	m := notify.Multi{rec, notify.Slog{}, notify.Func(func(notify.Notification) { forwarded++ })}

	m.Notify(notify.New(notify.LevelSuccess, "Changes saved automatically"))
	m.Notify(notify.New(notify.LevelError, "Error saving schedule data"))

	if got := len(rec.All()); got != 2 {
		t.Fatalf("recorded = %d, want 2", got)
	}
	errs := rec.Errors()
	if len(errs) != 1 || errs[0].Message != "Error saving schedule data" {
		t.Fatalf("errors = %+v", errs)
	}
	if forwarded != 2 {
		t.Fatalf("forwarded = %d, want 2", forwarded)
	}
	rec.Reset()
	if len(rec.All()) != 0 {
		t.Fatal("Reset did not clear")
	}
}
