package schedule

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Defaults for a freshly created or reset document.
const (
	DefaultTitle       = "Training Plan Goals"
	DefaultRowCount    = 10
	DefaultColumnCount = 7
)

// ColumnHeaders are the logical grid columns, in display order.
var ColumnHeaders = []string{"Trainer", "Hours", "Participant", "Level/Goal", "Notes", "Status"}

// StatusOptions are the values offered by the Status column dropdown.
var StatusOptions = []string{"Pending", "In Progress", "Completed", "Cancelled"}

// Domain errors
var (
	ErrNotFound   = errors.New("schedule data not found")
	ErrValidation = errors.New("missing required schedule data")
	ErrStorage    = errors.New("schedule storage failure")
	ErrParse      = errors.New("spreadsheet could not be parsed")
)

// Document is the single persisted schedule: a title plus a rectangular table of
// nullable cells. A nil cell marshals as JSON null.
type Document struct {
	Title string      `json:"scheduleTitle"`
	Rows  [][]*string `json:"spreadsheetData"`
}

// Default returns the blank document used on first access and after a reset.
// POST: Returns a new 10x7 all-null matrix; callers may mutate it freely
func Default() Document {
	return Document{Title: DefaultTitle, Rows: BlankRows(DefaultRowCount, DefaultColumnCount)}
}

// BlankRows builds a rows x cols matrix of null cells.
func BlankRows(rows, cols int) [][]*string {
	out := make([][]*string, rows)
	for i := range out {
		out[i] = make([]*string, cols)
	}
	return out
}

// Validate checks that both fields are present.
// PRE: Document may come from an untrusted request body
// POST: Returns nil if valid, ErrValidation otherwise
// INVARIANT: An empty but non-nil Rows slice counts as present
func (d *Document) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: scheduleTitle is required", ErrValidation)
	}
	if d.Rows == nil {
		return fmt.Errorf("%w: spreadsheetData is required", ErrValidation)
	}
	return nil
}

// WithDefaults fills in an absent title or absent rows, as a load does.
func (d Document) WithDefaults() Document {
	if d.Title == "" {
		d.Title = DefaultTitle
	}
	if d.Rows == nil {
		d.Rows = BlankRows(DefaultRowCount, DefaultColumnCount)
	}
	return d
}

// Clone returns a deep copy so stores and grids never share cell storage.
func (d Document) Clone() Document {
	return Document{Title: d.Title, Rows: CloneRows(d.Rows)}
}

// Equal reports whether two documents are field-for-field identical.
func (d Document) Equal(other Document) bool {
	return d.Title == other.Title && reflect.DeepEqual(d.Rows, other.Rows)
}

// CloneRows deep-copies a cell matrix, preserving nil rows and nil cells.
func CloneRows(rows [][]*string) [][]*string {
	if rows == nil {
		return nil
	}
	out := make([][]*string, len(rows))
	for i, row := range rows {
		if row == nil {
			continue
		}
		out[i] = make([]*string, len(row))
		for j, c := range row {
			if c != nil {
				v := *c
				out[i][j] = &v
			}
		}
	}
	return out
}

// Text returns a cell holding s.
func Text(s string) *string {
	return &s
}

// Value returns the cell contents, treating null as empty.
func Value(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}

// StringRows flattens a cell matrix into plain strings (null becomes "").
func StringRows(rows [][]*string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = Value(c)
		}
	}
	return out
}

// CellRows lifts plain strings into cells.
func CellRows(rows [][]string) [][]*string {
	out := make([][]*string, len(rows))
	for i, row := range rows {
		out[i] = make([]*string, len(row))
		for j := range row {
			out[i][j] = Text(row[j])
		}
	}
	return out
}

// Normalize pads every row of an imported table to at least width cells.
// PRE: width >= 0; raw may be ragged and may contain nil rows
// POST: Returns a new matrix; nil rows become width empty strings
// INVARIANT: Cells are never absent, only empty
func Normalize(raw [][]string, width int) [][]string {
	out := make([][]string, len(raw))
	for i, row := range raw {
		n := len(row)
		if n < width {
			n = width
		}
		padded := make([]string, n)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// NormalizeValues stringifies arbitrary cell values and pads like Normalize.
func NormalizeValues(raw [][]any, width int) [][]string {
	str := make([][]string, len(raw))
	for i, row := range raw {
		if row == nil {
			continue
		}
		str[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			str[i][j] = fmt.Sprint(v)
		}
	}
	return Normalize(str, width)
}

// ExportFilename derives a download name from the title: whitespace runs become '_'.
func ExportFilename(title, ext string) string {
	base := strings.Join(strings.Fields(title), "_")
	if base == "" {
		base = "training_schedule"
	}
	return base + "." + ext
}

// Reason strips a leading sentinel from err's message, leaving the detail a user can act on.
func Reason(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrParse, ErrValidation, ErrStorage, ErrNotFound} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
