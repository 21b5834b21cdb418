package orchestrators

import (
	"errors"
	"fmt"
	"log/slog"

	"trainingplan/internal/adapters/spreadsheet"
	"trainingplan/internal/domain/schedule"
)

// MaxUploadBytes bounds an uploaded workbook.
const MaxUploadBytes = 10 << 20

// ErrUploadTooLarge is returned for workbooks above MaxUploadBytes.
var ErrUploadTooLarge = errors.New("uploaded file is too large")

// WorkbookParser defines the parser interface needed by ParseUpload.
type WorkbookParser interface {
	Parse(filename string, data []byte) (spreadsheet.Table, error)
}

// ParseUploadInput carries an uploaded workbook.
type ParseUploadInput struct {
	Filename string
	Data     []byte
}

// ParseUploadDeps holds dependencies for ParseUpload.
type ParseUploadDeps struct {
	Parser WorkbookParser
}

// ExecuteParseUpload turns the first sheet of a workbook into a schedule document.
// PRE: Filename ends in .xlsx or .xls
// POST: Every row has at least len(schedule.ColumnHeaders) cells and no null cells
// INVARIANT: Nothing is persisted
func ExecuteParseUpload(input ParseUploadInput, deps ParseUploadDeps) (schedule.Document, error) {
	if len(input.Data) > MaxUploadBytes {
		return schedule.Document{}, fmt.Errorf("%w: %w", schedule.ErrParse, ErrUploadTooLarge)
	}

	table, err := deps.Parser.Parse(input.Filename, input.Data)
	if err != nil {
		slog.Info("schedule_event", "event", "import_failed", "filename", input.Filename, "reason", err.Error())
		if !errors.Is(err, schedule.ErrParse) {
			err = fmt.Errorf("%w: %v", schedule.ErrParse, err)
		}
		return schedule.Document{}, err
	}

	rows := schedule.Normalize(table.Rows, len(schedule.ColumnHeaders))
	title := table.Title
	if title == "" {
		title = schedule.DefaultTitle
	}
	return schedule.Document{Title: title, Rows: schedule.CellRows(rows)}, nil
}
