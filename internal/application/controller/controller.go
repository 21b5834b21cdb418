// Package controller keeps the grid and the persistence backend in sync for one
// editing session.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trainingplan/internal/adapters/grid"
	"trainingplan/internal/adapters/notify"
	"trainingplan/internal/adapters/spreadsheet"
	"trainingplan/internal/application/orchestrators"
	"trainingplan/internal/domain/schedule"
	"trainingplan/internal/domain/session"
)

// DefaultDebounce is the quiet period before an edit is auto-saved.
const DefaultDebounce = 2 * time.Second

// ErrNotPermitted is returned when the session lacks the permission an operation needs.
// The operation has no effect.
var ErrNotPermitted = errors.New("operation not permitted for this session")

// User-visible messages
const (
	MsgSaving       = "Saving..."
	MsgSaved        = "Changes saved automatically"
	MsgLoadFailed   = "Error loading data from server."
	MsgSaveFailed   = "Error saving data to server"
	MsgCleared      = "Spreadsheet data cleared and saved."
	MsgReset        = "Schedule has been reset to defaults."
	MsgResetFailed  = "Error resetting schedule"
	MsgImporting    = "Importing Excel file..."
	MsgImported     = "Excel data imported successfully!"
	MsgImportFailed = "Import failed: "
	MsgExported     = "CSV exported successfully."
	MsgExportFailed = "Export failed: "
	MsgLoggedOut    = "Logged out successfully."
)

// Store is the persistence backend the controller syncs with.
type Store interface {
	Get(ctx context.Context) (schedule.Document, error)
	Put(ctx context.Context, doc schedule.Document) error
	Reset(ctx context.Context) error
}

// Grid is the spreadsheet widget.
type Grid interface {
	LoadData(rows [][]*string, silent bool)
	GetData() [][]*string
	ColumnHeaders() []string
	UpdateSettings(s grid.Settings)
}

// Parser reads uploaded workbooks.
type Parser interface {
	Parse(filename string, data []byte) (spreadsheet.Table, error)
}

// State is the controller's current activity.
type State int

// Controller states
const (
	Idle State = iota
	Loading
	Saving
	Importing
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Saving:
		return "saving"
	case Importing:
		return "importing"
	default:
		return "idle"
	}
}

// Deps holds the collaborators of a Controller.
type Deps struct {
	Store    Store
	Grid     Grid
	Notifier notify.Notifier
	Parser   Parser
	Clock    Clock
}

// Options configures a Controller.
type Options struct {
	Session  session.Session
	Debounce time.Duration
}

// Controller is the sync controller for one editing session.
// INVARIANT: At most one backend operation runs at a time; later ones queue behind it
type Controller struct {
	deps     Deps
	debounce time.Duration

	// ops serializes every operation that touches the backend.
	ops   sync.Mutex
	loads singleflight.Group

	mu        sync.Mutex
	sess      session.Session
	title     string
	state     State
	timer     Timer
	lastSaved time.Time
}

// New creates a controller. Call Init before use.
// PRE: deps.Store and deps.Grid are non-nil
func New(deps Deps, opts Options) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Slog{}
	}
	if deps.Parser == nil {
		deps.Parser = spreadsheet.NewParser()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Session.Role == "" {
		opts.Session = session.Guest()
	}
	return &Controller{
		deps:     deps,
		debounce: opts.Debounce,
		sess:     opts.Session,
		title:    schedule.DefaultTitle,
	}
}

// Init configures the grid for the session and loads the document.
func (c *Controller) Init(ctx context.Context) {
	c.applySettings()
	c.Load(ctx)
}

// Session returns the active session.
func (c *Controller) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// SetSession switches the active session and reconfigures the grid.
// A save already scheduled re-checks permission when it fires.
func (c *Controller) SetSession(s session.Session) {
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
	c.applySettings()
	slog.Info("session_changed", "role", s.Role)
}

// Logout drops to the guest session and announces it.
func (c *Controller) Logout(state session.State) session.Session {
	s := session.Logout(state)
	c.SetSession(s)
	c.notify(notify.LevelInfo, MsgLoggedOut)
	return s
}

// State returns the current activity.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Title returns the in-memory title.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// LastSaved returns when the last successful save finished.
func (c *Controller) LastSaved() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved
}

// Document returns the title with a copy of the grid contents.
func (c *Controller) Document() schedule.Document {
	return schedule.Document{Title: c.Title(), Rows: c.deps.Grid.GetData()}
}

// Pending reports whether a debounced save is scheduled.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Load replaces title and rows with the stored document.
// POST: Grid holds the stored rows or the defaults; failures other than not-found are notified
// INVARIANT: Concurrent calls share one fetch
func (c *Controller) Load(ctx context.Context) {
	_, _, _ = c.loads.Do("load", func() (any, error) {
		c.ops.Lock()
		defer c.ops.Unlock()
		c.load(ctx)
		return nil, nil
	})
}

func (c *Controller) load(ctx context.Context) {
	c.setState(Loading)
	defer c.setState(Idle)

	doc, err := c.deps.Store.Get(ctx)
	switch {
	case err == nil:
		doc = doc.WithDefaults()
	case errors.Is(err, schedule.ErrNotFound):
		slog.Info("schedule_not_found", "action", "using_defaults")
		doc = schedule.Default()
	default:
		slog.Error("schedule_load_failed", "error", err)
		c.notify(notify.LevelError, MsgLoadFailed)
		doc = schedule.Default()
	}

	c.mu.Lock()
	c.title = doc.Title
	c.mu.Unlock()
	c.deps.Grid.LoadData(doc.Rows, true)
	slog.Debug("schedule_loaded", "title", doc.Title, "rows", len(doc.Rows))
}

// HandleGridEvent reacts to grid changes. Program-caused events are ignored;
// user edits schedule a debounced save when the session may edit.
func (c *Controller) HandleGridEvent(ev grid.Event) {
	if ev.CausedByProgram {
		return
	}
	if !c.Session().Permissions().CanEdit {
		return
	}
	c.scheduleSave()
}

// EditTitle sets the in-memory title and schedules a debounced save.
func (c *Controller) EditTitle(title string) error {
	c.mu.Lock()
	if !c.sess.Permissions().CanEdit {
		c.mu.Unlock()
		return ErrNotPermitted
	}
	c.title = title
	c.mu.Unlock()
	c.scheduleSave()
	return nil
}

// scheduleSave restarts the debounce window: only the last edit in a burst saves.
func (c *Controller) scheduleSave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	var t Timer
	t = c.deps.Clock.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		if c.timer != t {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()
		if err := c.Save(context.Background()); err != nil && !errors.Is(err, ErrNotPermitted) {
			slog.Debug("debounced_save_failed", "error", err)
		}
	})
	c.timer = t
}

// cancelPending drops a scheduled save.
func (c *Controller) cancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Flush runs a scheduled save now instead of waiting for the quiet period.
// POST: Returns nil when nothing was pending
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	t := c.timer
	c.timer = nil
	c.mu.Unlock()
	if t == nil {
		return nil
	}
	t.Stop()
	return c.Save(ctx)
}

// Save sends the current title and grid rows to the backend.
// PRE: Session may edit, otherwise ErrNotPermitted and nothing happens
// POST: On failure the user is notified; there is no retry and no rollback
func (c *Controller) Save(ctx context.Context) error {
	if !c.Session().Permissions().CanEdit {
		return ErrNotPermitted
	}
	c.ops.Lock()
	defer c.ops.Unlock()
	return c.save(ctx)
}

func (c *Controller) save(ctx context.Context) error {
	c.setState(Saving)
	defer c.setState(Idle)
	c.notify(notify.LevelInfo, MsgSaving)

	doc := c.Document()
	if err := c.deps.Store.Put(ctx, doc); err != nil {
		slog.Error("schedule_save_failed", "error", err)
		c.notify(notify.LevelError, MsgSaveFailed)
		return fmt.Errorf("save schedule: %w", err)
	}

	c.mu.Lock()
	c.lastSaved = c.deps.Clock.Now()
	c.mu.Unlock()
	c.notify(notify.LevelSuccess, MsgSaved)
	slog.Info("schedule_saved", "title", doc.Title, "rows", len(doc.Rows))
	return nil
}

// Clear blanks the grid to the default matrix and saves it.
// PRE: Session may edit
// POST: Title is kept; rows are the default 10x7 nulls
func (c *Controller) Clear(ctx context.Context) error {
	if !c.Session().Permissions().CanEdit {
		return ErrNotPermitted
	}
	c.ops.Lock()
	defer c.ops.Unlock()
	c.cancelPending()

	c.deps.Grid.LoadData(schedule.Default().Rows, true)
	if err := c.save(ctx); err != nil {
		return err
	}
	c.notify(notify.LevelSuccess, MsgCleared)
	return nil
}

// Delete resets the stored document to the default and reloads it.
// PRE: Session may delete
// POST: On success the grid shows the reloaded document; on failure it is unchanged
func (c *Controller) Delete(ctx context.Context) error {
	if !c.Session().Permissions().CanDelete {
		return ErrNotPermitted
	}
	c.ops.Lock()
	defer c.ops.Unlock()
	c.cancelPending()

	c.setState(Loading)
	if err := c.deps.Store.Reset(ctx); err != nil {
		c.setState(Idle)
		slog.Error("schedule_reset_failed", "error", err)
		c.notify(notify.LevelError, MsgResetFailed)
		return fmt.Errorf("reset schedule: %w", err)
	}
	c.load(ctx)
	c.notify(notify.LevelSuccess, MsgReset)
	slog.Info("schedule_reset")
	return nil
}

// Import replaces title and rows from an uploaded workbook and saves.
// PRE: Session may import
// POST: On parse failure nothing changes and the error wraps schedule.ErrParse
func (c *Controller) Import(ctx context.Context, filename string, data []byte) error {
	if !c.Session().Permissions().CanImport {
		return ErrNotPermitted
	}
	c.ops.Lock()
	defer c.ops.Unlock()

	c.setState(Importing)
	c.notify(notify.LevelInfo, MsgImporting)
	doc, err := orchestrators.ExecuteParseUpload(
		orchestrators.ParseUploadInput{Filename: filename, Data: data},
		orchestrators.ParseUploadDeps{Parser: c.deps.Parser},
	)
	if err != nil {
		c.setState(Idle)
		slog.Warn("schedule_import_failed", "filename", filename, "error", err)
		c.notify(notify.LevelError, MsgImportFailed+schedule.Reason(err))
		return err
	}
	c.cancelPending()

	c.mu.Lock()
	c.title = doc.Title
	c.mu.Unlock()
	c.deps.Grid.LoadData(doc.Rows, true)
	c.notify(notify.LevelSuccess, MsgImported)
	slog.Info("schedule_imported", "filename", filename, "rows", len(doc.Rows))

	return c.save(ctx)
}

// Export writes the column headers and grid rows in format ("csv" or "xlsx").
// PRE: Session may export (guests included)
func (c *Controller) Export(w io.Writer, format string) error {
	if !c.Session().Permissions().CanExport {
		return ErrNotPermitted
	}
	doc := c.Document()
	if err := spreadsheet.Write(w, format, doc.Title, c.deps.Grid.ColumnHeaders(), doc.Rows); err != nil {
		slog.Error("schedule_export_failed", "format", format, "error", err)
		c.notify(notify.LevelError, MsgExportFailed+err.Error())
		return err
	}
	if format == spreadsheet.FormatCSV {
		c.notify(notify.LevelSuccess, MsgExported)
	}
	return nil
}

// ExportFilename returns the download name for the current title.
func (c *Controller) ExportFilename(format string) string {
	return schedule.ExportFilename(c.Title(), format)
}

func (c *Controller) applySettings() {
	p := c.Session().Permissions()
	spare := 0
	if p.HasSpareRow {
		spare = 1
	}
	c.deps.Grid.UpdateSettings(grid.Settings{
		ReadOnly:     !p.CanEdit,
		ContextMenu:  p.CanUseContextMenu,
		MinSpareRows: spare,
	})
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) notify(level notify.Level, msg string) {
	c.deps.Notifier.Notify(notify.New(level, msg))
}
