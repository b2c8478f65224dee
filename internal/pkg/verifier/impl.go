package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/vreid/sweeper/internal/pkg/certifier"
	"github.com/vreid/sweeper/internal/pkg/common"
	"github.com/vreid/sweeper/internal/pkg/policy"
	"github.com/vreid/sweeper/internal/pkg/progression"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("board signature mismatch")
	ErrTransient      = errors.New("progression store unavailable")
)

type Verifier struct {
	Store     progression.Store
	Certifier *certifier.Certifier
	Logger    *slog.Logger
}

func NewVerifierService(i do.Injector) (*Verifier, error) {
	return &Verifier{
		Store:     do.MustInvoke[progression.Store](i),
		Certifier: do.MustInvoke[*certifier.Certifier](i),
		Logger:    do.MustInvoke[*slog.Logger](i),
	}, nil
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func (v *Verifier) ReportWin(ctx context.Context, claim WinClaim) (Result, error) {
	if claim.AccountID == "" || claim.Token == "" || claim.Board == nil {
		return Result{}, fmt.Errorf("%w: board, size and token are required", ErrInvalidRequest)
	}

	err := certifier.CheckShape(claim.Board, claim.Size)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if !v.Certifier.Verify(claim.Board, claim.Size, claim.Token) {
		v.Logger.WarnContext(ctx, "rejected win with invalid board signature",
			slog.String("account_id", claim.AccountID),
			slog.Int("size", claim.Size))

		return Result{}, ErrForbidden
	}

	largest, err := v.Store.Largest(ctx, claim.AccountID)
	if errors.Is(err, progression.ErrAccountNotFound) {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err != nil {
		return Result{}, transient(err)
	}

	expected := policy.NextExpected(largest)

	if claim.Size != expected || claim.Size <= largest {
		v.Logger.DebugContext(ctx, "ignored win for unexpected size",
			slog.String("account_id", claim.AccountID),
			slog.Int("size", claim.Size),
			slog.Int("expected", expected))

		return Result{Accepted: true, Advanced: false, Largest: largest}, nil
	}

	swapped, err := v.Store.CompareAndSet(ctx, claim.AccountID, largest, claim.Size)
	if errors.Is(err, progression.ErrAccountNotFound) {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err != nil {
		v.Logger.ErrorContext(ctx, "failed to advance progression",
			slog.String("account_id", claim.AccountID),
			common.Err(err))

		return Result{}, transient(err)
	}

	if !swapped {
		// Another report for this account advanced it first.
		return Result{Accepted: true, Advanced: false, Largest: largest}, nil
	}

	v.Logger.InfoContext(ctx, "advanced progression",
		slog.String("account_id", claim.AccountID),
		slog.Int("largest_board", claim.Size))

	return Result{Accepted: true, Advanced: true, Largest: claim.Size}, nil
}
