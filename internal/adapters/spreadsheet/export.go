package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "trainingplan/internal/domain/schedule"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the download MIME type for format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ValidFormat reports whether format is a known export format.
func ValidFormat(format string) bool {
	return format == FormatCSV || format == FormatXLSX
}

// Write encodes the schedule in format.
func Write(w io.Writer, format, title string, headers []string, rows [][]*string) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, headers, rows)
	case FormatXLSX:
		return WriteXLSX(w, title, headers, rows)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a header line followed by one line per row. Null cells are empty.
func WriteCSV(w io.Writer, headers []string, rows [][]*string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range domain.StringRows(rows) {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook named after the title.
func WriteXLSX(w io.Writer, title string, headers []string, rows [][]*string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, *v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SheetName makes title usable as a worksheet name: no :\/?*[] and at most 31 characters.
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	if name == "" {
		return "Schedule"
	}
	return name
}
