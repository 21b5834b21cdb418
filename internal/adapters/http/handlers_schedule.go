package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"trainingplan/internal/adapters/spreadsheet"
	"trainingplan/internal/application/orchestrators"
	"trainingplan/internal/domain/schedule"
)

// Response messages shared with the page script.
const (
	msgNotFound      = "Schedule data not found"
	msgGetFailed     = "Error retrieving schedule data"
	msgMissingFields = "Missing required schedule data"
	msgSaved         = "Schedule saved successfully"
	msgSaveFailed    = "Error saving schedule data"
	msgReset         = "Schedule reset successfully"
	msgResetFailed   = "Error resetting schedule"
	msgBadJSON       = "Invalid JSON body"
	msgTooLarge      = "Request body too large"
	msgImportFailed  = "Import failed: "
)

// handleSchedule handles GET (fetch), POST (replace) and DELETE (reset) for /api/schedule.
func handleSchedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		getSchedule(w, r)
	case "POST":
		saveSchedule(w, r)
	case "DELETE":
		resetSchedule(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func getSchedule(w http.ResponseWriter, r *http.Request) {
	doc, err := store.Get(r.Context())
	if errors.Is(err, schedule.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		apiError(w, http.StatusInternalServerError, msgGetFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// saveRequest accepts any JSON scalar in a cell; the page grid may send numbers.
type saveRequest struct {
	ScheduleTitle   string  `json:"scheduleTitle"`
	SpreadsheetData [][]any `json:"spreadsheetData"`
}

func saveSchedule(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	input := orchestrators.SaveScheduleInput{
		ScheduleTitle:   req.ScheduleTitle,
		SpreadsheetData: cellsFromJSON(req.SpreadsheetData),
	}
	err := orchestrators.ExecuteSaveSchedule(r.Context(), input, orchestrators.SaveScheduleDeps{Store: store})
	if errors.Is(err, schedule.ErrValidation) {
		writeMessage(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	if err != nil {
		apiError(w, http.StatusInternalServerError, msgSaveFailed, err)
		return
	}
	writeMessage(w, http.StatusOK, msgSaved)
}

// cellsFromJSON converts decoded JSON cells to nullable strings.
// POST: nil input stays nil so validation sees the field as absent
func cellsFromJSON(rows [][]any) [][]*string {
	if rows == nil {
		return nil
	}
	out := make([][]*string, len(rows))
	for i, row := range rows {
		if row == nil {
			continue
		}
		out[i] = make([]*string, len(row))
		for j, v := range row {
			switch v := v.(type) {
			case nil:
			case string:
				out[i][j] = schedule.Text(v)
			case float64:
				out[i][j] = schedule.Text(strconv.FormatFloat(v, 'f', -1, 64))
			case bool:
				out[i][j] = schedule.Text(strconv.FormatBool(v))
			default:
				b, _ := json.Marshal(v)
				out[i][j] = schedule.Text(string(b))
			}
		}
	}
	return out
}

func resetSchedule(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if err := orchestrators.ExecuteResetSchedule(r.Context(), orchestrators.ResetScheduleDeps{Store: store}); err != nil {
		apiError(w, http.StatusInternalServerError, msgResetFailed, err)
		return
	}
	writeMessage(w, http.StatusOK, msgReset)
}

// currentDocument returns the stored document, or the default when nothing was saved yet.
func currentDocument(r *http.Request) (schedule.Document, error) {
	doc, err := store.Get(r.Context())
	if errors.Is(err, schedule.ErrNotFound) {
		return schedule.Default(), nil
	}
	if err != nil {
		return schedule.Document{}, err
	}
	return doc.WithDefaults(), nil
}

// handleScheduleExport handles GET /api/schedule/export?format=csv|xlsx.
// Guests may export.
func handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.Header().Set("Allow", "GET")
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = spreadsheet.FormatCSV
	}
	if !spreadsheet.ValidFormat(format) {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Export failed: unknown format %q", format))
		return
	}

	doc, err := currentDocument(r)
	if err != nil {
		apiError(w, http.StatusInternalServerError, msgGetFailed, err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.Write(&buf, format, doc.Title, schedule.ColumnHeaders, doc.Rows); err != nil {
		apiError(w, http.StatusInternalServerError, "Export failed", err)
		return
	}

	filename := schedule.ExportFilename(doc.Title, format)
	w.Header().Set("Content-Type", spreadsheet.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
	slog.Info("schedule_event", "event", "schedule_exported", "format", format, "filename", filename)
}

// handleScheduleParse handles POST /api/schedule/parse with a multipart "file" field.
// The normalized document is returned and nothing is stored.
func handleScheduleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.Header().Set("Allow", "POST")
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireAdmin(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, orchestrators.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, msgImportFailed+orchestrators.ErrUploadTooLarge.Error())
			return
		}
		writeMessage(w, http.StatusBadRequest, msgImportFailed+"no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, orchestrators.MaxUploadBytes+1))
	if err != nil {
		apiError(w, http.StatusBadRequest, msgImportFailed+"unreadable upload", err)
		return
	}

	doc, err := orchestrators.ExecuteParseUpload(
		orchestrators.ParseUploadInput{Filename: header.Filename, Data: data},
		orchestrators.ParseUploadDeps{Parser: parser},
	)
	if errors.Is(err, orchestrators.ErrUploadTooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, msgImportFailed+schedule.Reason(err))
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgImportFailed+schedule.Reason(err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
