// Package progression persists the largest board size each account has
// cleared. Values only move forward, and only through CompareAndSet.
package progression

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrIdentityTaken   = errors.New("identity already taken")
	ErrEmptyIdentity   = errors.New("identity must not be empty")

	// ErrStore marks failures of the storage backend itself. Callers may retry.
	ErrStore = errors.New("progression store failure")
)

type Store interface {
	CreateAccount(ctx context.Context, identity string) (Account, error)
	AccountByIdentity(ctx context.Context, identity string) (Account, error)

	Largest(ctx context.Context, accountID string) (int, error)

	// CompareAndSet stores next only if the current value still equals
	// current and next is greater. It reports whether the write happened.
	CompareAndSet(ctx context.Context, accountID string, current, next int) (bool, error)

	Leaderboard(ctx context.Context) ([]Entry, error)
}

func SortLeaderboard(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.LargestBoard, a.LargestBoard); c != 0 {
			return c
		}

		return cmp.Compare(a.Identity, b.Identity)
	})
}

func newAccountID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return id.String(), nil
}
