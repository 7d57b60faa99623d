// Package cli implements the interactive clinisync device CLI: a small REPL
// over the key manager, session service, device registry, sync coordinator
// and backup codec.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/mlevitan/clinisync/internal/backup"
	"github.com/mlevitan/clinisync/internal/client/config"
	"github.com/mlevitan/clinisync/internal/collab"
	"github.com/mlevitan/clinisync/internal/cryptox"
	"github.com/mlevitan/clinisync/internal/devices"
	"github.com/mlevitan/clinisync/internal/keys"
	"github.com/mlevitan/clinisync/internal/localdb"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/server/store"
	"github.com/mlevitan/clinisync/internal/sessions"
	"github.com/mlevitan/clinisync/internal/sync"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db       *sql.DB
	remoteDB *sql.DB

	keys     *keys.Manager
	sessions *sessions.Service
	registry *devices.Registry
	coord    *sync.Coordinator
	backup   *backup.Codec

	transcriber collab.TranscriptionService
	directory   collab.PatientDirectory

	userID    string
	masterKey []byte
	reader    *bufio.Reader
}

// NewApp opens the local database, connects the remote store when one is
// configured and wires all services. A missing remote is not an error: the
// device works offline and sync commands report that sync is disabled.
func NewApp(ctx context.Context, c *config.Config, transcriber collab.TranscriptionService, directory collab.PatientDirectory) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	db, err := localdb.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	cryptoCfg := cryptox.DefaultConfig()
	cipher := sessions.NewCipher(cryptoCfg)
	identity := devices.HostIdentity{}
	registry := devices.NewRegistry(db, identity, logger)

	app := &App{
		config:      c,
		logger:      logger,
		db:          db,
		keys:        keys.NewManager(db, cryptoCfg, logger),
		sessions:    sessions.NewService(db, cipher, logger),
		registry:    registry,
		backup:      backup.NewCodec(db, identity, logger),
		transcriber: transcriber,
		directory:   directory,
		reader:      bufio.NewReader(os.Stdin),
	}

	if c.RemoteDSN != "" {
		remoteDB, err := store.Open(ctx, c.RemoteDSN)
		if err != nil {
			return nil, fmt.Errorf("error connecting remote store: %w", err)
		}
		app.remoteDB = remoteDB
		app.coord = sync.NewCoordinator(db, store.NewPostgresStore(remoteDB, logger), cipher, logger, registry.TouchLastSync)
	}

	return app, nil
}

func (a *App) Close() {
	if a.remoteDB != nil {
		_ = a.remoteDB.Close()
	}
	_ = a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.masterKey != nil
}

func (a *App) syncEnabled() bool {
	return a.coord != nil
}

// Run starts the REPL on stdin.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	printlnFn("clinisync CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) getStatus() string {
	if a.userID == "" {
		return ""
	}
	mode := "offline"
	if a.syncEnabled() {
		mode = "online"
	}
	return fmt.Sprintf("(%s %s)", a.userID, mode)
}
