package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"trainingplan/internal/domain/schedule"
)

// notesColumn is rendered as markdown in the print view.
const notesColumn = 4

// handleScheduleRedirect sends /schedule to the editor page.
func handleScheduleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/schedule.html", http.StatusFound)
}

type printPage struct {
	Title       string
	Headers     []string
	Rows        [][]string
	NotesColumn int
}

// handleSchedulePrint renders a read-only table of the stored schedule.
func handleSchedulePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, err := currentDocument(r)
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, http.StatusOK, "print.html", printPage{
		Title:       doc.Title,
		Headers:     schedule.ColumnHeaders,
		Rows:        schedule.StringRows(doc.Rows),
		NotesColumn: notesColumn,
	})
}

// handlePerf returns timing aggregates for the last hour. Admin only.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeMessage(w, http.StatusNotFound, "Timing collection disabled")
		return
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(time.Now().Add(-time.Hour), 10))
}

// staticHandler serves the page directory. Unknown non-API paths fall back to
// index.html so client-side routes load the app.
func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" && r.Method != "HEAD" {
			writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		clean := path.Clean("/" + r.URL.Path)
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && (!info.IsDir() || clean == "/") {
			files.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(clean, "/api/") {
			writeMessage(w, http.StatusNotFound, "Not found")
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
