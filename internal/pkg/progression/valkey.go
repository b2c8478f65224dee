package progression

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samber/do/v2"
	"github.com/valkey-io/valkey-go"
)

const (
	valkeyAccountPrefix  = "sweeper:account:"
	valkeyIndexKey       = "sweeper:accounts:index"
	valkeyLeaderboardKey = "sweeper:leaderboard"

	fieldIdentity = "identity"
	fieldLargest  = "largest_board"
)

// Returns -1 for a missing account, 0 when the stored value moved, 1 on write.
var compareAndSetScript = valkey.NewLuaScript(`
local current = redis.call('HGET', KEYS[1], 'largest_board')
if not current then
  return -1
end
if tonumber(current) ~= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'largest_board', ARGV[2])
local identity = redis.call('HGET', KEYS[1], 'identity')
redis.call('ZADD', KEYS[2], ARGV[2], identity)
return 1
`)

// Returns 0 when the identity is taken.
var createAccountScript = valkey.NewLuaScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('HSET', KEYS[2], 'identity', ARGV[1], 'largest_board', 0)
redis.call('ZADD', KEYS[3], 0, ARGV[1])
return 1
`)

type ValkeyStore struct {
	client valkey.Client
}

func NewValkeyStore(i do.Injector) (*ValkeyStore, error) {
	addr := do.MustInvokeNamed[string](i, "valkey-addr")

	return OpenValkeyStore(addr)
}

func OpenValkeyStore(addr string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	return &ValkeyStore{
		client: client,
	}, nil
}

func (s *ValkeyStore) Shutdown() error {
	s.client.Close()

	return nil
}

func accountKey(id string) string {
	return valkeyAccountPrefix + id
}

func (s *ValkeyStore) CreateAccount(ctx context.Context, identity string) (Account, error) {
	if identity == "" {
		return Account{}, ErrEmptyIdentity
	}

	id, err := newAccountID()
	if err != nil {
		return Account{}, fmt.Errorf("failed to generate account ID: %w", err)
	}

	created, err := createAccountScript.Exec(ctx, s.client,
		[]string{valkeyIndexKey, accountKey(id), valkeyLeaderboardKey},
		[]string{identity, id},
	).AsInt64()
	if err != nil {
		return Account{}, fmt.Errorf("%w: failed to create account: %w", ErrStore, err)
	}

	if created == 0 {
		return Account{}, ErrIdentityTaken
	}

	return Account{
		ID:           id,
		Identity:     identity,
		LargestBoard: 0,
	}, nil
}

func (s *ValkeyStore) AccountByIdentity(ctx context.Context, identity string) (Account, error) {
	id, err := s.client.Do(ctx, s.client.B().Hget().Key(valkeyIndexKey).Field(identity).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return Account{}, ErrAccountNotFound
	}

	if err != nil {
		return Account{}, fmt.Errorf("%w: failed to look up identity: %w", ErrStore, err)
	}

	largest, err := s.Largest(ctx, id)
	if err != nil {
		return Account{}, err
	}

	return Account{
		ID:           id,
		Identity:     identity,
		LargestBoard: largest,
	}, nil
}

func (s *ValkeyStore) Largest(ctx context.Context, accountID string) (int, error) {
	value, err := s.client.Do(ctx, s.client.B().Hget().Key(accountKey(accountID)).Field(fieldLargest).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return 0, ErrAccountNotFound
	}

	if err != nil {
		return 0, fmt.Errorf("%w: failed to get largest board: %w", ErrStore, err)
	}

	largest, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt largest board %q: %w", ErrStore, value, err)
	}

	return largest, nil
}

func (s *ValkeyStore) CompareAndSet(ctx context.Context, accountID string, current, next int) (bool, error) {
	if next <= current {
		return false, nil
	}

	result, err := compareAndSetScript.Exec(ctx, s.client,
		[]string{accountKey(accountID), valkeyLeaderboardKey},
		[]string{strconv.Itoa(current), strconv.Itoa(next)},
	).AsInt64()
	if err != nil {
		return false, fmt.Errorf("%w: failed to compare and set: %w", ErrStore, err)
	}

	switch result {
	case -1:
		return false, ErrAccountNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func (s *ValkeyStore) Leaderboard(ctx context.Context) ([]Entry, error) {
	scores, err := s.client.Do(ctx,
		s.client.B().Zrange().Key(valkeyLeaderboardKey).Min("0").Max("-1").Withscores().Build(),
	).AsZScores()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read leaderboard: %w", ErrStore, err)
	}

	entries := make([]Entry, 0, len(scores))
	for _, score := range scores {
		entries = append(entries, Entry{
			Identity:     score.Member,
			LargestBoard: int(score.Score),
		})
	}

	SortLeaderboard(entries)

	return entries, nil
}
