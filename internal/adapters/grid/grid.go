// Package grid provides a headless spreadsheet grid with the editing rules of the
// browser widget: read-only mode, context-menu row insertion and spare rows.
package grid

import (
	"errors"
	"sync"

	domain "trainingplan/internal/domain/schedule"
)

// Grid errors
var (
	ErrReadOnly       = errors.New("grid is read-only")
	ErrContextMenuOff = errors.New("row insertion is disabled")
	ErrOutOfRange     = errors.New("cell position out of range")
)

// Kind identifies what a grid event reports.
type Kind int

// Event kinds
const (
	Change Kind = iota
	CreateRow
)

func (k Kind) String() string {
	if k == CreateRow {
		return "create_row"
	}
	return "change"
}

// CellChange is one edited cell.
type CellChange struct {
	Row int
	Col int
	Old *string
	New *string
}

// Event is emitted after the grid contents change.
// CausedByProgram is set for changes made by loading data rather than by a user.
type Event struct {
	Kind            Kind
	CausedByProgram bool
	Changes         []CellChange
	Row             int
	Count           int
}

// Settings mirror the widget options driven by the session's permissions.
type Settings struct {
	ReadOnly     bool
	ContextMenu  bool
	MinSpareRows int
}

// Memory is a goroutine-safe in-process grid.
type Memory struct {
	mu       sync.Mutex
	headers  []string
	rows     [][]*string
	settings Settings
	listener func(Event)
}

// NewMemory creates an empty read-only grid with the given column headers.
func NewMemory(headers []string) *Memory {
	return &Memory{
		headers:  append([]string(nil), headers...),
		settings: Settings{ReadOnly: true},
	}
}

// Subscribe sets the single event listener. Events are delivered synchronously,
// outside the grid lock, so the listener may call back into the grid.
func (m *Memory) Subscribe(fn func(Event)) {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
}

// ColumnHeaders returns the display headers.
func (m *Memory) ColumnHeaders() []string {
	return append([]string(nil), m.headers...)
}

// Settings returns the current settings.
func (m *Memory) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateSettings applies new settings and tops up spare rows.
func (m *Memory) UpdateSettings(s Settings) {
	m.mu.Lock()
	m.settings = s
	added := m.ensureSpareRows()
	m.mu.Unlock()
	if added > 0 {
		m.emit(Event{Kind: CreateRow, CausedByProgram: true, Row: -1, Count: added})
	}
}

// LoadData replaces the whole grid with a copy of rows.
// POST: A silent load emits no event; otherwise one program-caused Change event
func (m *Memory) LoadData(rows [][]*string, silent bool) {
	m.mu.Lock()
	m.rows = domain.CloneRows(rows)
	if m.rows == nil {
		m.rows = [][]*string{}
	}
	m.ensureSpareRows()
	m.mu.Unlock()
	if !silent {
		m.emit(Event{Kind: Change, CausedByProgram: true})
	}
}

// GetData returns a copy of the current rows.
func (m *Memory) GetData() [][]*string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneRows(m.rows)
}

// SetCell applies a user edit.
// PRE: row, col >= 0
// POST: Emits a user Change event, plus CreateRow if spare rows were consumed
func (m *Memory) SetCell(row, col int, value *string) error {
	if row < 0 || col < 0 {
		return ErrOutOfRange
	}
	m.mu.Lock()
	if m.settings.ReadOnly {
		m.mu.Unlock()
		return ErrReadOnly
	}
	for len(m.rows) <= row {
		m.rows = append(m.rows, make([]*string, m.width()))
	}
	for len(m.rows[row]) <= col {
		m.rows[row] = append(m.rows[row], nil)
	}
	old := m.rows[row][col]
	var next *string
	if value != nil {
		v := *value
		next = &v
	}
	m.rows[row][col] = next
	added := m.ensureSpareRows()
	total := len(m.rows)
	m.mu.Unlock()

	m.emit(Event{Kind: Change, Changes: []CellChange{{Row: row, Col: col, Old: old, New: next}}})
	if added > 0 {
		m.emit(Event{Kind: CreateRow, Row: total - added, Count: added})
	}
	return nil
}

// InsertRow inserts a blank row at index, as the context menu does.
func (m *Memory) InsertRow(index int) error {
	m.mu.Lock()
	if m.settings.ReadOnly {
		m.mu.Unlock()
		return ErrReadOnly
	}
	if !m.settings.ContextMenu {
		m.mu.Unlock()
		return ErrContextMenuOff
	}
	if index < 0 || index > len(m.rows) {
		m.mu.Unlock()
		return ErrOutOfRange
	}
	blank := make([]*string, m.width())
	m.rows = append(m.rows, nil)
	copy(m.rows[index+1:], m.rows[index:])
	m.rows[index] = blank
	m.mu.Unlock()

	m.emit(Event{Kind: CreateRow, Row: index, Count: 1})
	return nil
}

// width is the widest row, or the default column count for an empty grid.
func (m *Memory) width() int {
	w := 0
	for _, r := range m.rows {
		if len(r) > w {
			w = len(r)
		}
	}
	if w == 0 {
		w = domain.DefaultColumnCount
	}
	return w
}

// ensureSpareRows appends blank rows until MinSpareRows trailing rows are empty.
// Callers hold m.mu.
func (m *Memory) ensureSpareRows() int {
	spare := 0
	for i := len(m.rows) - 1; i >= 0 && emptyRow(m.rows[i]); i-- {
		spare++
	}
	added := 0
	for spare+added < m.settings.MinSpareRows {
		m.rows = append(m.rows, make([]*string, m.width()))
		added++
	}
	return added
}

func emptyRow(row []*string) bool {
	for _, c := range row {
		if domain.Value(c) != "" {
			return false
		}
	}
	return true
}

func (m *Memory) emit(ev Event) {
	m.mu.Lock()
	fn := m.listener
	m.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}
