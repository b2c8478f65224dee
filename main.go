package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/do/v2"
	"github.com/vreid/sweeper/internal/pkg/app"
	"github.com/vreid/sweeper/internal/pkg/common"
	"github.com/vreid/sweeper/internal/pkg/progression"
	"github.com/vreid/sweeper/internal/pkg/session"

	"github.com/urfave/cli/v3"
)

var errMissingIdentity = errors.New("missing identity argument")

func newLogger(cmd *cli.Command) *slog.Logger {
	return common.NewLogger(os.Stderr, cmd.String("log-format"), cmd.String("log-level"))
}

func newInjector(cmd *cli.Command, logger *slog.Logger) *do.RootScope {
	i := do.New()

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))
	do.ProvideNamedValue(i, "store", cmd.String("store"))
	do.ProvideNamedValue(i, "valkey-addr", cmd.String("valkey-addr"))

	do.ProvideNamedValue(i, "signature-secret", cmd.String("signature-secret"))
	do.ProvideNamedValue(i, "session-secret", cmd.String("session-secret"))
	do.ProvideNamedValue(i, "session-max-age", cmd.Duration("session-max-age"))

	do.ProvideNamedValue(i, "changelog-dir", cmd.String("changelog-dir"))
	do.ProvideNamedValue(i, "changelog-ttl", cmd.Duration("changelog-ttl"))

	app.Provide(i, logger)

	return i
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	i := newInjector(cmd, logger)
	defer func() {
		_ = i.Shutdown()
	}()

	sweeperService, err := do.Invoke[app.SweeperService](i)
	if err != nil {
		return fmt.Errorf("failed to create sweeper service: %w", err)
	}

	logger.Info("starting server",
		slog.Int("port", int(cmd.Int("port"))),
		slog.String("store", cmd.String("store")))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd
		defer cancel()

		err := sweeperService.EchoService.Shutdown(shutdownCtx)
		if err != nil {
			logger.Error("failed to shut down", common.Err(err))
		}
	}()

	//nolint:wrapcheck
	return sweeperService.EchoService.Start()
}

func runAccountAdd(ctx context.Context, cmd *cli.Command) error {
	identity := cmd.Args().First()
	if identity == "" {
		return errMissingIdentity
	}

	i := newInjector(cmd, newLogger(cmd))
	defer func() {
		_ = i.Shutdown()
	}()

	store, err := do.Invoke[progression.Store](i)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	account, err := store.CreateAccount(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Println(account.ID) //nolint:forbidigo

	return nil
}

func runSessionIssue(ctx context.Context, cmd *cli.Command) error {
	identity := cmd.Args().First()
	if identity == "" {
		return errMissingIdentity
	}

	i := newInjector(cmd, newLogger(cmd))
	defer func() {
		_ = i.Shutdown()
	}()

	store, err := do.Invoke[progression.Store](i)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	gate, err := do.Invoke[*session.Gate](i)
	if err != nil {
		return fmt.Errorf("failed to create session gate: %w", err)
	}

	account, err := store.AccountByIdentity(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}

	token, err := gate.Issue(account.ID)
	if err != nil {
		return err //nolint:wrapcheck
	}

	fmt.Println(token) //nolint:forbidigo

	return nil
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Value:   "./sweeper/data",
			Sources: cli.EnvVars("SWEEPER_DATA_DIR"),
		},
		&cli.StringFlag{
			Name:    "store",
			Value:   app.StoreBolt,
			Usage:   "progression store backend (bolt or valkey)",
			Sources: cli.EnvVars("SWEEPER_STORE"),
		},
		&cli.StringFlag{
			Name:    "valkey-addr",
			Value:   "localhost:6379",
			Sources: cli.EnvVars("SWEEPER_VALKEY_ADDR"),
		},
	}
}

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "session-secret",
			Required: true,
			Sources:  cli.EnvVars("SWEEPER_SESSION_SECRET"),
		},
		&cli.DurationFlag{
			Name:    "session-max-age",
			Value:   24 * time.Hour, //nolint:mnd
			Sources: cli.EnvVars("SWEEPER_SESSION_MAX_AGE"),
		},
	}
}

func serverFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Value:   3000, //nolint:mnd
			Sources: cli.EnvVars("SWEEPER_PORT"),
		},
		&cli.StringFlag{
			Name:     "signature-secret",
			Required: true,
			Sources:  cli.EnvVars("SWEEPER_SIGNATURE_SECRET"),
		},
		&cli.StringFlag{
			Name:    "changelog-dir",
			Value:   ".",
			Sources: cli.EnvVars("SWEEPER_CHANGELOG_DIR"),
		},
		&cli.DurationFlag{
			Name:    "changelog-ttl",
			Value:   300 * time.Second, //nolint:mnd
			Sources: cli.EnvVars("SWEEPER_CHANGELOG_TTL"),
		},
	}

	flags = append(flags, storeFlags()...)

	return append(flags, sessionFlags()...)
}

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	//nolint:exhaustruct
	cmd := &cli.Command{
		Name: "sweeper",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("SWEEPER_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   common.LogFormatText,
				Sources: cli.EnvVars("SWEEPER_LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "server",
				Flags:  serverFlags(),
				Action: runServer,
			},
			{
				Name: "account",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "create an account with no boards cleared",
						ArgsUsage: "<identity>",
						Flags:     storeFlags(),
						Action:    runAccountAdd,
					},
				},
			},
			{
				Name: "session",
				Commands: []*cli.Command{
					{
						Name:      "issue",
						Usage:     "print a session token for an existing account",
						ArgsUsage: "<identity>",
						Flags:     append(storeFlags(), sessionFlags()...),
						Action:    runSessionIssue,
					},
				},
			},
		},
		DefaultCommand: "server",
	}

	err = cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
