package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runStoreContract exercises the Store behavior both backends must share.
// open returns a fresh, empty store; the helper closes it.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("lookup of an unknown fingerprint returns ErrRecordNotFound", func(t *testing.T) {
		s := open(t)

		_, err := s.Lookup(ctx, "0102030408")
		if !errors.Is(err, ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("put then lookup round trips a record", func(t *testing.T) {
		s := open(t)

		savedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		want := Record{Length: 9, Email: "alice@x.com", SavedAt: savedAt}
		if err := s.Put(ctx, "0102030408", want); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := s.Lookup(ctx, "0102030408")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Length != want.Length || got.Email != want.Email || !got.SavedAt.Equal(want.SavedAt) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	})

	t.Run("put overwrites an existing record", func(t *testing.T) {
		s := open(t)

		if err := s.Put(ctx, "0102030408", Record{Length: 9, Email: "alice@x.com"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Put(ctx, "0102030408", Record{Length: 9}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := s.Lookup(ctx, "0102030408")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Live() {
			t.Errorf("expected overwritten record to be dead, got %+v", got)
		}
	})

	t.Run("snapshot returns all records and never the salt", func(t *testing.T) {
		s := open(t)

		if err := s.PutSalt(ctx, "2167744401"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Put(ctx, "0102030408", Record{Length: 9, Email: "alice@x.com"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Put(ctx, "deadbeef08", Record{Length: 12}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		snap, err := s.Snapshot(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snap) != 2 {
			t.Fatalf("expected 2 records in snapshot, got %d: %v", len(snap), snap)
		}
		if _, ok := snap["salt"]; ok {
			t.Error("salt entry leaked into snapshot")
		}
		if rec := snap["0102030408"]; rec.Email != "alice@x.com" {
			t.Errorf("unexpected record for 0102030408: %+v", rec)
		}
		if rec := snap["deadbeef08"]; rec.Length != 12 || rec.Live() {
			t.Errorf("unexpected record for deadbeef08: %+v", rec)
		}
	})

	t.Run("apply deletes before puts", func(t *testing.T) {
		s := open(t)

		if err := s.Put(ctx, "0102030408", Record{Length: 9, Email: "old@x.com"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Put(ctx, "deadbeef08", Record{Length: 12}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		batch := NewBatch()
		batch.Delete = append(batch.Delete, "deadbeef08", "0102030408")
		batch.Put["0102030408"] = Record{Length: 9, Email: "new@x.com"}
		if err := s.Apply(ctx, batch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := s.Lookup(ctx, "deadbeef08"); !errors.Is(err, ErrRecordNotFound) {
			t.Errorf("expected deadbeef08 to be deleted, got %v", err)
		}
		got, err := s.Lookup(ctx, "0102030408")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Email != "new@x.com" {
			t.Errorf("expected put to win over delete for the same key, got %+v", got)
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s := open(t)

		if err := s.Apply(ctx, NewBatch()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("salt is empty until persisted", func(t *testing.T) {
		s := open(t)

		salt, err := s.Salt(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if salt != "" {
			t.Errorf("expected empty salt, got %q", salt)
		}

		if err := s.PutSalt(ctx, "2167744401"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		salt, err = s.Salt(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if salt != "2167744401" {
			t.Errorf("expected persisted salt, got %q", salt)
		}
	})
}
