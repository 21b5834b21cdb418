package schedule

import (
	"context"

	domain "trainingplan/internal/domain/schedule"
)

// Store persists the single schedule document.
// Every implementation replaces the whole document on Put; there is no merge.
type Store interface {
	// Get returns the stored document, domain.ErrNotFound when never initialized,
	// or domain.ErrStorage on I/O failure.
	Get(ctx context.Context) (domain.Document, error)
	// Put validates and stores doc, failing with domain.ErrValidation or domain.ErrStorage.
	Put(ctx context.Context, doc domain.Document) error
	// Reset restores domain.Default(), failing only with domain.ErrStorage.
	Reset(ctx context.Context) error
}
