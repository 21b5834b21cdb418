package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	web "trainingplan/internal/adapters/http"
	scheduleStore "trainingplan/internal/adapters/storage/schedule"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// planctl runs one command against dbPath.
func planctl(t *testing.T, dbPath, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-db", dbPath}, args...)
	code := run(full, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("PLAN_ADMIN_PASSWORD", "secret")
	t.Setenv("PLAN_DEBOUNCE_MS", "3600000")
	return filepath.Join(t.TempDir(), "planctl.db")
}

func loginAdmin(t *testing.T, db string) {
	t.Helper()
	if r := planctl(t, db, "", "login", "-password", "secret", "admin"); r.code != 0 {
		t.Fatalf("login exit = %d, stderr %s", r.code, r.stderr)
	}
}

func TestRun_Usage(t *testing.T) {
	db := setup(t)
	if r := planctl(t, db, ""); r.code != 2 || !strings.Contains(r.stderr, "usage: planctl") {
		t.Fatalf("no command: exit = %d, stderr %q", r.code, r.stderr)
	}
	if r := planctl(t, db, "", "frobnicate"); r.code != 2 {
		t.Fatalf("unknown command exit = %d, want 2", r.code)
	}
	if r := planctl(t, db, "", "-backend", "ftp", "show"); r.code != 2 {
		t.Fatalf("unknown backend exit = %d, want 2", r.code)
	}
	if r := planctl(t, db, "", "set", "0"); r.code != 2 {
		t.Fatalf("short set exit = %d, want 2", r.code)
	}
}

// TestRun_ShowDefault verifies a fresh database shows the default schedule.
func TestRun_ShowDefault(t *testing.T) {
	r := planctl(t, setup(t), "", "show")
	if r.code != 0 {
		t.Fatalf("exit = %d, stderr %s", r.code, r.stderr)
	}
	lines := strings.Split(strings.TrimRight(r.stdout, "\n"), "\n")
	if lines[0] != "Training Plan Goals" {
		t.Fatalf("title line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Trainer") || !strings.Contains(lines[1], "Status") {
		t.Fatalf("header line = %q", lines[1])
	}
	if len(lines) != 12 {
		t.Fatalf("lines = %d, want title + header + 10 rows", len(lines))
	}
}

// TestRun_GuestCannotEdit verifies edits are refused without an admin login.
func TestRun_GuestCannotEdit(t *testing.T) {
	db := setup(t)
	for _, args := range [][]string{
		{"set", "0", "0", "Terry"},
		{"title", "Mine"},
		{"clear"},
		{"delete"},
	} {
		r := planctl(t, db, "", args...)
		if r.code != 1 || !strings.Contains(r.stderr, "requires an admin session") {
			t.Fatalf("%v: exit = %d, stderr %q", args, r.code, r.stderr)
		}
	}
	if r := planctl(t, db, "", "whoami"); strings.TrimSpace(r.stdout) != "User: Guest" {
		t.Fatalf("whoami = %q", r.stdout)
	}
}

// TestRun_AdminEditsPersist verifies a login survives between runs and edits are saved.
func TestRun_AdminEditsPersist(t *testing.T) {
	db := setup(t)
	loginAdmin(t, db)

	if r := planctl(t, db, "", "whoami"); strings.TrimSpace(r.stdout) != "User: Admin (admin)" {
		t.Fatalf("whoami = %q", r.stdout)
	}

	r := planctl(t, db, "", "set", "0", "0", "Terry")
	if r.code != 0 {
		t.Fatalf("set exit = %d, stderr %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stderr, "Changes saved automatically") {
		t.Fatalf("set did not save: %q", r.stderr)
	}
	if r := planctl(t, db, "", "title", "Q3", "Plan"); r.code != 0 {
		t.Fatalf("title exit = %d, stderr %s", r.code, r.stderr)
	}

	r = planctl(t, db, "", "show")
	if !strings.HasPrefix(r.stdout, "Q3 Plan\n") || !strings.Contains(r.stdout, "Terry") {
		t.Fatalf("show = %q", r.stdout)
	}
}

// TestRun_LoginFailures covers a wrong password read from stdin.
func TestRun_LoginFailures(t *testing.T) {
	db := setup(t)
	r := planctl(t, db, "wrong\n", "login", "admin")
	if r.code != 1 || !strings.Contains(r.stderr, "incorrect username or password") {
		t.Fatalf("exit = %d, stderr %q", r.code, r.stderr)
	}
	if r := planctl(t, db, "secret\n", "login", "admin"); r.code != 0 || strings.TrimSpace(r.stdout) != "User: Admin (admin)" {
		t.Fatalf("stdin password: exit = %d, stdout %q", r.code, r.stdout)
	}
	if r := planctl(t, db, "", "login", "-guest"); strings.TrimSpace(r.stdout) != "User: Guest" {
		t.Fatalf("guest login = %q", r.stdout)
	}
}

func TestRun_Logout(t *testing.T) {
	db := setup(t)
	loginAdmin(t, db)
	r := planctl(t, db, "", "logout")
	if r.code != 0 || !strings.Contains(r.stderr, "Logged out successfully.") {
		t.Fatalf("logout exit = %d, stderr %q", r.code, r.stderr)
	}
	if r := planctl(t, db, "", "whoami"); strings.TrimSpace(r.stdout) != "User: Guest" {
		t.Fatalf("whoami after logout = %q", r.stdout)
	}
}

// TestRun_Export verifies guests may export and the default file name follows the title.
func TestRun_Export(t *testing.T) {
	db := setup(t)
	loginAdmin(t, db)
	planctl(t, db, "", "set", "0", "0", "Terry")
	planctl(t, db, "", "logout")

	r := planctl(t, db, "", "export", "-o", "-")
	if r.code != 0 {
		t.Fatalf("export exit = %d, stderr %s", r.code, r.stderr)
	}
	if !strings.HasPrefix(r.stdout, "Trainer,Hours,Participant,Level/Goal,Notes,Status\nTerry,") {
		t.Fatalf("csv = %q", r.stdout)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "plan.xlsx")
	if r := planctl(t, db, "", "export", "-format", "xlsx", "-o", out); r.code != 0 {
		t.Fatalf("xlsx exit = %d, stderr %s", r.code, r.stderr)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(f.GetSheetName(0), "A2"); v != "Terry" {
		t.Fatalf("A2 = %q", v)
	}

	if r := planctl(t, db, "", "export", "-format", "pdf"); r.code != 2 {
		t.Fatalf("pdf export exit = %d, want 2", r.code)
	}
}

// TestRun_Import replaces the schedule from a workbook named after its sheet.
func TestRun_Import(t *testing.T) {
	db := setup(t)
	loginAdmin(t, db)

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Autumn"); err != nil {
		t.Fatal(err)
	}
	_ = f.SetSheetRow("Autumn", "A1", &[]any{"Trainer", "Hours"})
	_ = f.SetSheetRow("Autumn", "A2", &[]any{"Ana", 3})
	path := filepath.Join(t.TempDir(), "autumn.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r := planctl(t, db, "", "import", path)
	if r.code != 0 || !strings.Contains(r.stderr, "Excel data imported successfully!") {
		t.Fatalf("import exit = %d, stderr %q", r.code, r.stderr)
	}
	r = planctl(t, db, "", "show")
	if !strings.HasPrefix(r.stdout, "Autumn\n") || !strings.Contains(r.stdout, "Ana") {
		t.Fatalf("show after import = %q", r.stdout)
	}

	missing := planctl(t, db, "", "import", filepath.Join(t.TempDir(), "nope.xlsx"))
	if missing.code != 1 {
		t.Fatalf("missing file exit = %d, want 1", missing.code)
	}
	bad := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(bad, []byte("hello"), 0o644)
	if r := planctl(t, db, "", "import", bad); r.code != 1 || !strings.Contains(r.stderr, "Import failed: ") {
		t.Fatalf("bad file: exit = %d, stderr %q", r.code, r.stderr)
	}
}

// TestRun_RemoteBackend edits a schedule served over HTTP.
func TestRun_RemoteBackend(t *testing.T) {
	db := setup(t)
	fs, err := scheduleStore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	web.RateLimitPerSecond = 1000
	srv := httptest.NewServer(web.NewMux(web.Options{
		StaticDir: t.TempDir(),
		CSRFKey:   bytes.Repeat([]byte("k"), 32),
	}, web.Deps{Store: fs}))
	defer srv.Close()

	loginAdmin(t, db)
	r := planctl(t, db, "", "-backend", "remote", "-api", srv.URL, "-v", "set", "1", "2", "Joshua")
	if r.code != 0 {
		t.Fatalf("remote set exit = %d, stderr %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stderr, "remote POST /api/schedule") {
		t.Fatalf("timings missing remote calls: %q", r.stderr)
	}

	doc, err := fs.Get(t.Context())
	if err != nil {
		t.Fatalf("server store: %v", err)
	}
	if len(doc.Rows) < 2 || doc.Rows[1][2] == nil || *doc.Rows[1][2] != "Joshua" {
		t.Fatalf("stored rows = %v", doc.Rows)
	}

	srv.Close()
	r = planctl(t, db, "", "-backend", "remote", "-api", srv.URL, "set", "0", "0", "X")
	if r.code != 1 || !strings.Contains(r.stderr, "Error saving data to server") {
		t.Fatalf("unreachable server: exit = %d, stderr %q", r.code, r.stderr)
	}
}
