// Package storetest holds the behaviour every schedule Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	store "trainingplan/internal/adapters/storage/schedule"
	domain "trainingplan/internal/domain/schedule"
)

// Factory returns a fresh, empty-or-seeded store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises newStore against the shared Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("put then get round trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := domain.Document{
			Title: "Q3 Plan",
			Rows: [][]*string{
				{domain.Text("Terry"), domain.Text("5"), domain.Text("Joshua"), domain.Text("Basic"), nil, domain.Text("Pending")},
			},
		}
		if err := s.Put(ctx, doc); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Equal(doc) {
			t.Fatalf("Get = %+v, want %+v", got, doc)
		}
	})

	t.Run("put is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := domain.Document{Title: "Twice", Rows: [][]*string{{domain.Text("a")}}}
		for i := 0; i < 2; i++ {
			if err := s.Put(ctx, doc); err != nil {
				t.Fatalf("Put #%d: %v", i+1, err)
			}
		}
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Equal(doc) {
			t.Fatalf("Get = %+v, want %+v", got, doc)
		}
	})

	t.Run("empty rows are kept", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := domain.Document{Title: "Empty", Rows: [][]*string{}}
		if err := s.Put(ctx, doc); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Rows == nil || len(got.Rows) != 0 {
			t.Fatalf("Rows = %#v, want empty non-nil", got.Rows)
		}
	})

	t.Run("reset yields default", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, domain.Document{Title: "Before", Rows: [][]*string{{domain.Text("x")}}}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Reset(ctx); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Equal(domain.Default()) {
			t.Fatalf("Get after Reset = %+v, want default", got)
		}
	})

	t.Run("put rejects missing fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, doc := range []domain.Document{
			{Rows: [][]*string{}},
			{Title: "no rows"},
		} {
			if err := s.Put(ctx, doc); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Put(%+v) err = %v, want ErrValidation", doc, err)
			}
		}
	})

	t.Run("failed put leaves document untouched", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := domain.Document{Title: "Keep", Rows: [][]*string{{domain.Text("k")}}}
		if err := s.Put(ctx, doc); err != nil {
			t.Fatalf("Put: %v", err)
		}
		_ = s.Put(ctx, domain.Document{Title: "Broken"})
		got, err := s.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Equal(doc) {
			t.Fatalf("Get = %+v, want %+v", got, doc)
		}
	})
}
