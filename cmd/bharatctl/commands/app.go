package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bharatconnect/internal/backend"
	"bharatconnect/internal/crypto"
	"bharatconnect/internal/keystore"
	"bharatconnect/internal/repository/bolt"
	"bharatconnect/internal/service/backup"
	"bharatconnect/internal/service/lifecycle"
	"bharatconnect/internal/service/messaging"
	"bharatconnect/pkg/config"
	"bharatconnect/pkg/logger"
)

// App is the device-side service graph for one command invocation
type App struct {
	Local     *bolt.LocalRepository
	Lifecycle *lifecycle.Service
	Messaging *messaging.Service
	Backup    *backup.Service

	closers []func()
}

// NewApp wires the device services. store may be nil when cold storage is not
// wanted.
func NewApp(local *bolt.LocalRepository, dir keystore.Directory, vault lifecycle.Vault, store backup.Store, opts backup.Options) *App {
	keys := keystore.NewAccessor(local, dir, crypto.NewStdProvider())
	return &App{
		Local:     local,
		Lifecycle: lifecycle.NewService(keys, vault),
		Messaging: messaging.NewService(keys),
		Backup:    backup.NewService(keys, store, opts).WithVault(vault),
	}
}

// Close releases the device database and backend connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// CurrentUser returns the account signed in on this device
func (a *App) CurrentUser() (string, error) {
	uid, err := a.Local.CurrentUser()
	if errors.Is(err, bolt.ErrNoSession) {
		return "", fmt.Errorf("not logged in, run: bharatctl login <user-id>")
	}
	return uid, err
}

// OpenOptions controls what an Opener connects to
type OpenOptions struct {
	DBPath      string
	BackupStore bool // connect to MinIO
}

// Opener builds the App for a command
type Opener func(ctx context.Context, opts OpenOptions) (*App, error)

// OpenFromConfig connects to the backends named by the environment
func OpenFromConfig(ctx context.Context, opts OpenOptions) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: "text", Output: "stderr"}
	if cfg.Log.Output == "file" {
		logCfg = &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "file", FilePath: cfg.Log.FilePath}
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = cfg.Device.DBPath
	}
	local, err := bolt.Open(dbPath)
	if err != nil {
		return nil, err
	}

	backends, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	var store backup.Store
	if opts.BackupStore {
		repo, err := backend.OpenBackupStore(ctx, cfg.MinIO)
		if err != nil {
			backends.Close()
			_ = local.Close()
			return nil, err
		}
		store = repo
	}

	app := NewApp(local, backends.Directory, backends.Vaults, store, backend.BackupOptions(cfg.Backup))
	app.closers = append(app.closers,
		func() {
			if err := local.Close(); err != nil {
				logger.Warn("Failed to close device database", zap.Error(err))
			}
		},
		backends.Close,
	)
	return app, nil
}
