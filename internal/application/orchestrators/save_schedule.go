package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"trainingplan/internal/domain/schedule"
)

// validate is shared; validator caches struct metadata per type.
var validate = validator.New()

// ScheduleStore defines the store interface needed by the schedule orchestrators.
type ScheduleStore interface {
	Get(ctx context.Context) (schedule.Document, error)
	Put(ctx context.Context, doc schedule.Document) error
	Reset(ctx context.Context) error
}

// SaveScheduleInput carries the request body of a save.
type SaveScheduleInput struct {
	ScheduleTitle   string      `json:"scheduleTitle" validate:"required"`
	SpreadsheetData [][]*string `json:"spreadsheetData" validate:"required"`
}

// SaveScheduleDeps holds dependencies for SaveSchedule.
type SaveScheduleDeps struct {
	Store ScheduleStore
}

// ExecuteSaveSchedule replaces the stored document with the input.
// PRE: Both fields present; an empty rows array counts as present
// POST: Store holds exactly the input, or ErrValidation / ErrStorage is returned
func ExecuteSaveSchedule(ctx context.Context, input SaveScheduleInput, deps SaveScheduleDeps) error {
	if err := validate.Struct(input); err != nil {
		slog.Info("schedule_event", "event", "save_rejected", "reason", err.Error())
		return fmt.Errorf("%w: %v", schedule.ErrValidation, err)
	}

	doc := schedule.Document{Title: input.ScheduleTitle, Rows: input.SpreadsheetData}
	if err := deps.Store.Put(ctx, doc); err != nil {
		return err
	}

	slog.Info("schedule_event", "event", "schedule_saved", "title", doc.Title, "rows", len(doc.Rows))
	return nil
}

// ResetScheduleDeps holds dependencies for ResetSchedule.
type ResetScheduleDeps struct {
	Store ScheduleStore
}

// ExecuteResetSchedule restores the default document.
// POST: A subsequent Get returns schedule.Default()
func ExecuteResetSchedule(ctx context.Context, deps ResetScheduleDeps) error {
	if err := deps.Store.Reset(ctx); err != nil {
		return err
	}
	slog.Info("schedule_event", "event", "schedule_reset")
	return nil
}
