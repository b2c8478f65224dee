package game

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/sweeper/internal/pkg/certifier"
	"github.com/vreid/sweeper/internal/pkg/changelog"
	"github.com/vreid/sweeper/internal/pkg/common"
	"github.com/vreid/sweeper/internal/pkg/policy"
	"github.com/vreid/sweeper/internal/pkg/progression"
	"github.com/vreid/sweeper/internal/pkg/session"
	"github.com/vreid/sweeper/internal/pkg/verifier"
)

type GameService struct {
	Store            progression.Store
	Certifier        *certifier.Certifier
	Verifier         *verifier.Verifier
	Gate             *session.Gate
	ChangelogService *changelog.ChangelogService
	Logger           *slog.Logger
}

func NewGameService(i do.Injector) (*GameService, error) {
	result := &GameService{
		Store:            do.MustInvoke[progression.Store](i),
		Certifier:        do.MustInvoke[*certifier.Certifier](i),
		Verifier:         do.MustInvoke[*verifier.Verifier](i),
		Gate:             do.MustInvoke[*session.Gate](i),
		ChangelogService: do.MustInvoke[*changelog.ChangelogService](i),
		Logger:           do.MustInvoke[*slog.Logger](i),
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(result.Routes)

	return result, nil
}

func (s *GameService) Routes(e *echo.Echo) {
	e.GET("/leaderboard", s.GetLeaderboard)
	e.GET("/changelogs", s.GetChangelogs)

	requireSession := s.Gate.Middleware()

	e.GET("/game", s.GetGame, requireSession)
	e.POST("/sign-board", s.PostSignBoard, requireSession)
	e.POST("/win", s.PostWin, requireSession)
}

func (s *GameService) GetGame(c echo.Context) error {
	largest, err := s.Store.Largest(c.Request().Context(), session.AccountID(c))
	if errors.Is(err, progression.ErrAccountNotFound) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown account")
	}

	if err != nil {
		s.Logger.ErrorContext(c.Request().Context(), "failed to read progression", common.Err(err))

		return echo.NewHTTPError(http.StatusServiceUnavailable, "progression store unavailable")
	}

	offer := policy.NewOffer(largest)

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, GameResponse{
		NextSize:     offer.Size,
		MineCount:    offer.Mines,
		LargestBoard: largest,
	})
}

func bindAndValidate(c echo.Context, req any) error {
	err := c.Bind(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err = c.Validate(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}

func (s *GameService) PostSignBoard(c echo.Context) error {
	var req SignBoardRequest

	err := bindAndValidate(c, &req)
	if err != nil {
		return err
	}

	token, err := s.Certifier.Sign(req.Board, req.Size)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, SignBoardResponse{Token: token})
}

func (s *GameService) PostWin(c echo.Context) error {
	var req WinRequest

	err := bindAndValidate(c, &req)
	if err != nil {
		return err
	}

	result, err := s.Verifier.ReportWin(c.Request().Context(), verifier.WinClaim{
		AccountID: session.AccountID(c),
		Board:     req.Board,
		Size:      req.Size,
		Token:     req.Token,
	})

	switch {
	case err == nil:
	case errors.Is(err, verifier.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, verifier.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "invalid board signature")
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "progression store unavailable")
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, result)
}

func (s *GameService) GetLeaderboard(c echo.Context) error {
	entries, err := s.Store.Leaderboard(c.Request().Context())
	if err != nil {
		s.Logger.ErrorContext(c.Request().Context(), "failed to read leaderboard", common.Err(err))

		return echo.NewHTTPError(http.StatusServiceUnavailable, "progression store unavailable")
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, entries)
}

func (s *GameService) GetChangelogs(c echo.Context) error {
	//nolint:wrapcheck
	return c.JSON(http.StatusOK, s.ChangelogService.Commits(c.Request().Context()))
}
