package progression_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/sweeper/internal/pkg/common"
	"github.com/vreid/sweeper/internal/pkg/progression"
)

func newBoltStore(t *testing.T) *progression.BoltStore {
	t.Helper()

	databaseService, err := common.OpenDatabase(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = databaseService.Shutdown()
	})

	return &progression.BoltStore{DatabaseService: databaseService}
}

func newValkeyStore(t *testing.T) *progression.ValkeyStore {
	t.Helper()

	addr := os.Getenv("SWEEPER_TEST_VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	store, err := progression.OpenValkeyStore(addr)
	if err != nil {
		t.Skipf("Valkey not available: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Shutdown()
	})

	return store
}

func stores(t *testing.T) map[string]func(t *testing.T) progression.Store {
	t.Helper()

	return map[string]func(t *testing.T) progression.Store{
		"bolt": func(t *testing.T) progression.Store {
			t.Helper()

			return newBoltStore(t)
		},
		"valkey": func(t *testing.T) progression.Store {
			t.Helper()

			return newValkeyStore(t)
		},
	}
}

// Valkey state outlives a test run, so identities are made unique.
func identity(name string) string {
	return name + "-" + uuid.NewString()
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := open(t)
			ctx := context.Background()
			alice := identity("alice")

			account, err := store.CreateAccount(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, alice, account.Identity)
			assert.Equal(t, 0, account.LargestBoard)
			assert.NotEmpty(t, account.ID)

			largest, err := store.Largest(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, largest)

			found, err := store.AccountByIdentity(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, account, found)

			_, err = store.CreateAccount(ctx, alice)
			require.ErrorIs(t, err, progression.ErrIdentityTaken)

			_, err = store.CreateAccount(ctx, "")
			require.ErrorIs(t, err, progression.ErrEmptyIdentity)
		})
	}
}

func TestMissingAccount(t *testing.T) {
	t.Parallel()

	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := open(t)
			ctx := context.Background()

			_, err := store.Largest(ctx, uuid.NewString())
			require.ErrorIs(t, err, progression.ErrAccountNotFound)

			_, err = store.AccountByIdentity(ctx, identity("nobody"))
			require.ErrorIs(t, err, progression.ErrAccountNotFound)

			_, err = store.CompareAndSet(ctx, uuid.NewString(), 0, 9)
			require.ErrorIs(t, err, progression.ErrAccountNotFound)
		})
	}
}

func TestCompareAndSet(t *testing.T) {
	t.Parallel()

	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := open(t)
			ctx := context.Background()

			account, err := store.CreateAccount(ctx, identity("bob"))
			require.NoError(t, err)

			swapped, err := store.CompareAndSet(ctx, account.ID, 0, 9)
			require.NoError(t, err)
			assert.True(t, swapped)

			swapped, err = store.CompareAndSet(ctx, account.ID, 0, 10)
			require.NoError(t, err)
			assert.False(t, swapped, "stale current value must not write")

			swapped, err = store.CompareAndSet(ctx, account.ID, 9, 9)
			require.NoError(t, err)
			assert.False(t, swapped, "value must grow")

			swapped, err = store.CompareAndSet(ctx, account.ID, 9, 3)
			require.NoError(t, err)
			assert.False(t, swapped, "value must grow")

			largest, err := store.Largest(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, 9, largest)
		})
	}
}

func TestCompareAndSetConcurrent(t *testing.T) {
	t.Parallel()

	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := open(t)
			ctx := context.Background()

			account, err := store.CreateAccount(ctx, identity("carol"))
			require.NoError(t, err)

			var (
				wg      sync.WaitGroup
				swapped atomic.Int32
			)

			for range 16 {
				wg.Add(1)

				go func() {
					defer wg.Done()

					ok, err := store.CompareAndSet(ctx, account.ID, 0, 9)
					assert.NoError(t, err)

					if ok {
						swapped.Add(1)
					}
				}()
			}

			wg.Wait()

			assert.Equal(t, int32(1), swapped.Load())

			largest, err := store.Largest(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, 9, largest)
		})
	}
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()

	store := newBoltStore(t)
	ctx := context.Background()

	for who, largest := range map[string]int{
		"dave":  10,
		"erin":  12,
		"frank": 10,
		"gina":  0,
		"abe":   10,
	} {
		account, err := store.CreateAccount(ctx, who)
		require.NoError(t, err)

		if largest > 0 {
			swapped, err := store.CompareAndSet(ctx, account.ID, 0, largest)
			require.NoError(t, err)
			require.True(t, swapped)
		}
	}

	entries, err := store.Leaderboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, []progression.Entry{
		{Identity: "erin", LargestBoard: 12},
		{Identity: "abe", LargestBoard: 10},
		{Identity: "dave", LargestBoard: 10},
		{Identity: "frank", LargestBoard: 10},
		{Identity: "gina", LargestBoard: 0},
	}, entries)
}

func TestLeaderboardEmpty(t *testing.T) {
	t.Parallel()

	entries, err := newBoltStore(t).Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestSortLeaderboard(t *testing.T) {
	t.Parallel()

	entries := []progression.Entry{
		{Identity: "b", LargestBoard: 9},
		{Identity: "a", LargestBoard: 9},
		{Identity: "c", LargestBoard: 11},
	}

	progression.SortLeaderboard(entries)

	assert.Equal(t, []progression.Entry{
		{Identity: "c", LargestBoard: 11},
		{Identity: "a", LargestBoard: 9},
		{Identity: "b", LargestBoard: 9},
	}, entries)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := newBoltStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Largest(ctx, "any")
	require.ErrorIs(t, err, context.Canceled)
}
