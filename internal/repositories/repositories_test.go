package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/wrapped/internal/pkce"
	"github.com/desertthunder/wrapped/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenStorage(shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("SetItem And GetItem", func(t *testing.T) {
		storage := NewLocalStorage(setupTestDB(t))

		if err := storage.SetItem(ctx, "theme", "dark"); err != nil {
			t.Fatalf("failed to set item: %v", err)
		}

		got, err := storage.GetItem(ctx, "theme")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got != "dark" {
			t.Errorf("expected dark, got %s", got)
		}
	})

	t.Run("SetItem Overwrites", func(t *testing.T) {
		storage := NewLocalStorage(setupTestDB(t))

		storage.SetItem(ctx, "k", "one")
		if err := storage.SetItem(ctx, "k", "two"); err != nil {
			t.Fatalf("failed to overwrite item: %v", err)
		}

		got, _ := storage.GetItem(ctx, "k")
		if got != "two" {
			t.Errorf("expected two, got %s", got)
		}
	})

	t.Run("GetItem Missing", func(t *testing.T) {
		storage := NewLocalStorage(setupTestDB(t))

		if _, err := storage.GetItem(ctx, "nope"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("TakeItem Removes", func(t *testing.T) {
		storage := NewLocalStorage(setupTestDB(t))
		storage.SetItem(ctx, "k", "v")

		got, err := storage.TakeItem(ctx, "k")
		if err != nil || got != "v" {
			t.Fatalf("TakeItem() = %q, %v", got, err)
		}

		if _, err := storage.TakeItem(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("second take should fail with ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("RemoveItem Missing Is Not An Error", func(t *testing.T) {
		storage := NewLocalStorage(setupTestDB(t))

		if err := storage.RemoveItem(ctx, "nope"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestVerifierStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Round Trip Reproduces Challenge", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))

		pair, err := pkce.New(pkce.DefaultVerifierLength)
		if err != nil {
			t.Fatalf("failed to generate pair: %v", err)
		}

		if err := store.Save(ctx, pair.Verifier); err != nil {
			t.Fatalf("failed to save verifier: %v", err)
		}

		got, err := store.Take(ctx)
		if err != nil {
			t.Fatalf("failed to take verifier: %v", err)
		}

		if got != pair.Verifier {
			t.Error("stored verifier was modified")
		}
		if pkce.GenerateChallenge(got) != pair.Challenge {
			t.Error("re-derived challenge does not match")
		}
	})

	t.Run("Take Consumes", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))
		store.Save(ctx, "abc")

		if _, err := store.Take(ctx); err != nil {
			t.Fatalf("first take failed: %v", err)
		}
		if _, err := store.Take(ctx); !errors.Is(err, shared.ErrMissingVerifier) {
			t.Errorf("expected ErrMissingVerifier, got %v", err)
		}
	})

	t.Run("Absent Verifier", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))

		if _, err := store.Take(ctx); !errors.Is(err, shared.ErrMissingVerifier) {
			t.Errorf("expected ErrMissingVerifier, got %v", err)
		}
		if _, err := store.Peek(ctx); !errors.Is(err, shared.ErrMissingVerifier) {
			t.Errorf("expected ErrMissingVerifier from Peek, got %v", err)
		}
	})

	t.Run("Peek Does Not Consume", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))
		store.Save(ctx, "abc")

		store.Peek(ctx)
		if got, err := store.Take(ctx); err != nil || got != "abc" {
			t.Errorf("Take() after Peek() = %q, %v", got, err)
		}
	})

	t.Run("Save Replaces Pending Verifier", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))
		store.Save(ctx, "first")
		store.Save(ctx, "second")

		if got, _ := store.Take(ctx); got != "second" {
			t.Errorf("expected second, got %s", got)
		}
	})

	t.Run("Save Rejects Empty", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))

		if err := store.Save(ctx, ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewVerifierStore(NewLocalStorage(setupTestDB(t)))
		store.Save(ctx, "abc")

		if err := store.Clear(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, err := store.Peek(ctx); !errors.Is(err, shared.ErrMissingVerifier) {
			t.Errorf("expected ErrMissingVerifier after clear, got %v", err)
		}
	})
}
