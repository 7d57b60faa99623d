// Package server bootstraps the sync server: PostgreSQL session store,
// device token minting and presigned audio storage. It wires the services
// and owns their lifecycle; the transport in front of them is a deployment
// concern and stays out of this module.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/server/audio"
	"github.com/mlevitan/clinisync/internal/server/auth"
	"github.com/mlevitan/clinisync/internal/server/config"
	"github.com/mlevitan/clinisync/internal/server/store"
)

type App struct {
	config *config.Config
	logger logging.Logger

	Store *store.PostgresStore
	Audio *audio.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &App{
		config: c,
		logger: logger,
		Store:  store.NewPostgresStore(db, logger),
		Audio:  audio.NewService(c),
	}, nil
}

// MintDeviceToken issues a sync token for a (user, device) pair using the
// configured secret and validity.
func (app *App) MintDeviceToken(userID, deviceID string) (string, error) {
	return auth.MintDeviceToken(userID, deviceID, []byte(app.config.SecretKey), app.config.TokenValidity)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the context is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "sync server ready")
	<-ctx.Done()
	app.logger.Info(ctx, "shutting down")
}
