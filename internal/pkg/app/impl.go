// Package app wires every service into a samber/do injector.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/vreid/sweeper/internal/pkg/certifier"
	"github.com/vreid/sweeper/internal/pkg/changelog"
	"github.com/vreid/sweeper/internal/pkg/common"
	"github.com/vreid/sweeper/internal/pkg/game"
	"github.com/vreid/sweeper/internal/pkg/progression"
	"github.com/vreid/sweeper/internal/pkg/session"
	"github.com/vreid/sweeper/internal/pkg/verifier"
)

const (
	StoreBolt   = "bolt"
	StoreValkey = "valkey"
)

var ErrUnknownStore = errors.New("unknown store backend")

type SweeperService struct {
	EchoService *common.EchoService `do:""`
	GameService *game.GameService   `do:""`
}

func NewCertifierService(i do.Injector) (*certifier.Certifier, error) {
	secret := do.MustInvokeNamed[string](i, "signature-secret")

	c, err := certifier.New([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to create certifier: %w", err)
	}

	return c, nil
}

func NewStoreService(i do.Injector) (progression.Store, error) {
	backend := do.MustInvokeNamed[string](i, "store")

	switch backend {
	case StoreBolt:
		store, err := do.Invoke[*progression.BoltStore](i)
		if err != nil {
			return nil, fmt.Errorf("failed to create bolt store: %w", err)
		}

		return store, nil
	case StoreValkey:
		store, err := do.Invoke[*progression.ValkeyStore](i)
		if err != nil {
			return nil, fmt.Errorf("failed to create valkey store: %w", err)
		}

		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, backend)
	}
}

// Provide registers all services. Named values (port, data-dir, store,
// valkey-addr, signature-secret, session-secret, session-max-age,
// changelog-dir, changelog-ttl) must be provided by the caller.
func Provide(i do.Injector, logger *slog.Logger) {
	do.ProvideValue(i, logger)

	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, progression.NewBoltStore)
	do.Provide(i, progression.NewValkeyStore)
	do.Provide(i, NewStoreService)

	do.Provide(i, NewCertifierService)
	do.Provide(i, verifier.NewVerifierService)
	do.Provide(i, session.NewGateService)
	do.Provide(i, changelog.NewChangelogService)

	do.Provide(i, common.NewEchoService)
	do.Provide(i, game.NewGameService)

	do.Provide(i, do.InvokeStruct[SweeperService])
}
