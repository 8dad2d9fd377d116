package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/wrapped/internal/shared"
)

// VerifierKey is the storage key holding the pending PKCE verifier.
const VerifierKey = "verifier"

// VerifierStore persists the code verifier between the authorization redirect and the callback.
//
// Exactly one verifier is pending at a time; saving a new one replaces the old.
type VerifierStore interface {
	Save(ctx context.Context, verifier string) error
	// Take returns and removes the pending verifier. It fails with [shared.ErrMissingVerifier] when none is pending.
	Take(ctx context.Context) (string, error)
	// Peek returns the pending verifier without consuming it.
	Peek(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// StorageVerifierStore implements [VerifierStore] on a [LocalStorage].
type StorageVerifierStore struct {
	storage *LocalStorage
}

var _ VerifierStore = (*StorageVerifierStore)(nil)

// NewVerifierStore creates a [StorageVerifierStore].
func NewVerifierStore(storage *LocalStorage) *StorageVerifierStore {
	return &StorageVerifierStore{storage: storage}
}

func (s *StorageVerifierStore) Save(ctx context.Context, verifier string) error {
	if verifier == "" {
		return fmt.Errorf("%w: empty verifier", shared.ErrInvalidArgument)
	}
	return s.storage.SetItem(ctx, VerifierKey, verifier)
}

func (s *StorageVerifierStore) Take(ctx context.Context) (string, error) {
	v, err := s.storage.TakeItem(ctx, VerifierKey)
	return verifierResult(v, err)
}

func (s *StorageVerifierStore) Peek(ctx context.Context) (string, error) {
	v, err := s.storage.GetItem(ctx, VerifierKey)
	return verifierResult(v, err)
}

func (s *StorageVerifierStore) Clear(ctx context.Context) error {
	return s.storage.RemoveItem(ctx, VerifierKey)
}

func verifierResult(v string, err error) (string, error) {
	if errors.Is(err, ErrKeyNotFound) {
		return "", shared.ErrMissingVerifier
	}
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", shared.ErrMissingVerifier
	}
	return v, nil
}
