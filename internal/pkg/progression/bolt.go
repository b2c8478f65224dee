package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/vreid/sweeper/internal/pkg/common"
	"go.etcd.io/bbolt"
)

var errBucketNotFound = errors.New("bucket doesn't exist")

type BoltStore struct {
	DatabaseService *common.DatabaseService
}

func NewBoltStore(i do.Injector) (*BoltStore, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)

	return &BoltStore{
		DatabaseService: databaseService,
	}, nil
}

type accountBuckets struct {
	identity *bbolt.Bucket
	largest  *bbolt.Bucket
	index    *bbolt.Bucket
}

func buckets(tx *bbolt.Tx) (accountBuckets, error) {
	b := accountBuckets{
		identity: tx.Bucket([]byte(common.AccountsIdentityBucket)),
		largest:  tx.Bucket([]byte(common.AccountsLargestBucket)),
		index:    tx.Bucket([]byte(common.AccountsIndexBucket)),
	}

	if b.identity == nil || b.largest == nil || b.index == nil {
		return b, errBucketNotFound
	}

	return b, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrIdentityTaken) || errors.Is(err, ErrEmptyIdentity) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrStore, err)
}

func (s *BoltStore) CreateAccount(ctx context.Context, identity string) (Account, error) {
	if identity == "" {
		return Account{}, ErrEmptyIdentity
	}

	err := ctx.Err()
	if err != nil {
		return Account{}, err //nolint:wrapcheck
	}

	id, err := newAccountID()
	if err != nil {
		return Account{}, fmt.Errorf("failed to generate account ID: %w", err)
	}

	err = s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		b, err := buckets(tx)
		if err != nil {
			return err
		}

		if b.index.Get([]byte(identity)) != nil {
			return ErrIdentityTaken
		}

		err = b.index.Put([]byte(identity), []byte(id))
		if err != nil {
			return fmt.Errorf("failed to put identity index: %w", err)
		}

		err = b.identity.Put([]byte(id), []byte(identity))
		if err != nil {
			return fmt.Errorf("failed to put identity: %w", err)
		}

		err = b.largest.Put([]byte(id), common.Int64ToBytes(0))
		if err != nil {
			return fmt.Errorf("failed to put largest board: %w", err)
		}

		return nil
	})
	if err != nil {
		return Account{}, storeErr(err)
	}

	return Account{
		ID:           id,
		Identity:     identity,
		LargestBoard: 0,
	}, nil
}

func (s *BoltStore) AccountByIdentity(ctx context.Context, identity string) (Account, error) {
	err := ctx.Err()
	if err != nil {
		return Account{}, err //nolint:wrapcheck
	}

	var account Account

	err = s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		b, err := buckets(tx)
		if err != nil {
			return err
		}

		id := b.index.Get([]byte(identity))
		if id == nil {
			return ErrAccountNotFound
		}

		account = Account{
			ID:           string(id),
			Identity:     identity,
			LargestBoard: int(common.BytesToInt64(b.largest.Get(id), 0)),
		}

		return nil
	})

	return account, storeErr(err)
}

func (s *BoltStore) Largest(ctx context.Context, accountID string) (int, error) {
	err := ctx.Err()
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	var largest int

	err = s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		b, err := buckets(tx)
		if err != nil {
			return err
		}

		value := b.largest.Get([]byte(accountID))
		if value == nil {
			return ErrAccountNotFound
		}

		largest = int(common.BytesToInt64(value, 0))

		return nil
	})

	return largest, storeErr(err)
}

// CompareAndSet runs in a single read-write transaction. bbolt allows one
// writer at a time, so the check and the write can't interleave with another report.
func (s *BoltStore) CompareAndSet(ctx context.Context, accountID string, current, next int) (bool, error) {
	err := ctx.Err()
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	if next <= current {
		return false, nil
	}

	swapped := false

	err = s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		b, err := buckets(tx)
		if err != nil {
			return err
		}

		value := b.largest.Get([]byte(accountID))
		if value == nil {
			return ErrAccountNotFound
		}

		if int(common.BytesToInt64(value, 0)) != current {
			return nil
		}

		err = b.largest.Put([]byte(accountID), common.Int64ToBytes(int64(next)))
		if err != nil {
			return fmt.Errorf("failed to put largest board: %w", err)
		}

		swapped = true

		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}

	return swapped, nil
}

func (s *BoltStore) Leaderboard(ctx context.Context) ([]Entry, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	entries := []Entry{}

	err = s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		b, err := buckets(tx)
		if err != nil {
			return err
		}

		return b.identity.ForEach(func(id, identity []byte) error {
			entries = append(entries, Entry{
				Identity:     string(identity),
				LargestBoard: int(common.BytesToInt64(b.largest.Get(id), 0)),
			})

			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}

	SortLeaderboard(entries)

	return entries, nil
}
