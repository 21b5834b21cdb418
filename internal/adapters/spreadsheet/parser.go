// Package spreadsheet reads uploaded workbooks and writes schedule downloads.
package spreadsheet

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	domain "trainingplan/internal/domain/schedule"
)

// DefaultMaxRows caps how many rows are read from a legacy .xls sheet.
const DefaultMaxRows = 100000

// Table is the first worksheet of a workbook: its name and its cell text.
type Table struct {
	Title string
	Rows  [][]string
}

// Parser decodes .xlsx and .xls uploads.
type Parser struct {
	MaxRows int
}

// NewParser creates a parser with default limits.
func NewParser() *Parser {
	return &Parser{MaxRows: DefaultMaxRows}
}

// Supported reports whether filename has an importable extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// Parse reads the first worksheet of data.
// PRE: filename carries the upload's original extension
// POST: Returns the sheet name and its rows (possibly ragged), or an error wrapping ErrParse
func (p *Parser) Parse(filename string, data []byte) (Table, error) {
	var (
		t   Table
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		t, err = p.parseXLSX(data)
	case ".xls":
		t, err = p.parseXLS(data)
	default:
		return Table{}, fmt.Errorf("%w: Please select an Excel file (.xlsx or .xls)", domain.ErrParse)
	}
	if err != nil {
		return Table{}, err
	}
	if len(t.Rows) == 0 {
		return Table{}, fmt.Errorf("%w: No data found in the Excel file", domain.ErrParse)
	}
	return t, nil
}

func (p *Parser) parseXLSX(data []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return Table{}, fmt.Errorf("%w: no worksheet found", domain.ErrParse)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return Table{}, fmt.Errorf("%w: read sheet %q: %v", domain.ErrParse, name, err)
	}
	return Table{Title: name, Rows: rows}, nil
}

// parseXLS recovers from decoder panics, which malformed legacy files can trigger.
func (p *Parser) parseXLS(data []byte) (t Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = Table{}, fmt.Errorf("%w: unreadable xls file: %v", domain.ErrParse, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if wb.NumSheets() == 0 {
		return Table{}, fmt.Errorf("%w: no worksheet found", domain.ErrParse)
	}
	maxRows := p.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	name := ""
	if sheet := wb.GetSheet(0); sheet != nil {
		name = sheet.Name
	}
	return Table{Title: name, Rows: wb.ReadAllCells(maxRows)}, nil
}
