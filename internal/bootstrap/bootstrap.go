package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"goa.design/clue/log"
	"golang.org/x/sync/errgroup"

	sessioninadapter "deepwork/internal/modules/session/adapter/in"
	"deepwork/internal/modules/session/adapter/in/rpc"
	sessionoutadapter "deepwork/internal/modules/session/adapter/out"
	"deepwork/internal/modules/session/domain"
	sessionin "deepwork/internal/modules/session/port/in"
	sessionout "deepwork/internal/modules/session/port/out"
	sessionservice "deepwork/internal/modules/session/service"
	sessionusecase "deepwork/internal/modules/session/usecase"
	"deepwork/internal/platform/clock"
	"deepwork/internal/platform/config"
	"deepwork/internal/platform/id"
	platformotel "deepwork/internal/platform/otel"
	"deepwork/internal/platform/tx"
	"deepwork/internal/ui/watch"
)

const serviceName = "deepwork"

type App struct {
	SessionCLI sessioninadapter.CLIHandler
	Usecase    sessionin.Usecase

	config  config.Config
	sweeper *sessionservice.Sweeper
	closers []func() error
}

// New wires an in-process engine over the store selected by cfg.Store.
func New(cfg config.Config) (*App, error) {
	clk := clock.SystemClock{}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	policy := PolicyFrom(cfg)

	sweeper := sessionservice.NewSweeper(clk, store, policy, cfg.SweepInterval)
	sessionUC := sessionusecase.NewInteractor(
		clk,
		sessionservice.NewSessionService(clk, id.UUID{}, store, &tx.Serial{}, policy),
		sessionservice.NewQueryService(store),
		sweeper,
	)

	app := &App{
		SessionCLI: sessioninadapter.NewCLIHandler(sessionUC),
		Usecase:    sessionUC,
		config:     cfg,
		sweeper:    sweeper,
	}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}
	return app, nil
}

// Connect returns an App whose calls go to the daemon listening on socketPath.
func Connect(cfg config.Config, socketPath string) (*App, error) {
	client, err := rpc.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect daemon: %w", err)
	}
	return &App{
		SessionCLI: sessioninadapter.NewCLIHandler(client),
		Usecase:    client,
		config:     cfg,
		closers:    []func() error{client.Close},
	}, nil
}

// Local reports whether the app runs its own engine.
func (a *App) Local() bool {
	return a.sweeper != nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// PolicyFrom maps the configured windows onto the sweeper policy.
func PolicyFrom(cfg config.Config) domain.Policy {
	return domain.Policy{
		OverdueGrace:       cfg.OverdueGrace,
		InactivityTimeout:  cfg.InactivityTimeout,
		InterruptThreshold: cfg.InterruptThreshold,
	}
}

func openStore(cfg config.Config) (sessionout.SessionStore, func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sessionoutadapter.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case config.StoreVault:
		return sessionoutadapter.NewVaultStore(cfg.DataDir), nil, nil
	case config.StoreMemory:
		return sessionoutadapter.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// RunDaemon runs the sweeper and the gRPC server until ctx is canceled or
// either of them fails. ctx must carry a logger from logging.Context; request
// handlers log through it.
func RunDaemon(ctx context.Context, app *App) (err error) {
	if !app.Local() {
		return fmt.Errorf("daemon needs a local engine, not a remote address")
	}
	shutdownTelemetry, err := platformotel.Setup(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdownTelemetry(flushCtx); shutdownErr != nil && err == nil {
			err = fmt.Errorf("shutdown telemetry: %w", shutdownErr)
		}
	}()

	server := sessioninadapter.NewGRPCServer(app.Usecase, sessioninadapter.WithLogger(ctx))
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return app.sweeper.Run(groupCtx)
	})
	group.Go(func() error {
		return sessioninadapter.Serve(groupCtx, app.config.SocketPath, server)
	})
	log.Print(ctx,
		log.KV{K: "msg", V: "daemon started"},
		log.KV{K: "store", V: app.config.Store},
		log.KV{K: "sweep_interval", V: app.config.SweepInterval.String()},
	)
	err = group.Wait()
	log.Print(ctx, log.KV{K: "msg", V: "daemon stopped"})
	return err
}

// RunWatch opens the read-only watch view over the app's query port.
func RunWatch(app *App) error {
	program := tea.NewProgram(watch.NewModel(app.Usecase), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
