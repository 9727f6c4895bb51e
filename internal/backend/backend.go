package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/database"
	"bharatconnect/internal/domain"
	"bharatconnect/internal/keystore"
	"bharatconnect/internal/repository/cockroach"
	fsrepo "bharatconnect/internal/repository/firestore"
	miniorepo "bharatconnect/internal/repository/minio"
	redisrepo "bharatconnect/internal/repository/redis"
	"bharatconnect/internal/service/backup"
	"bharatconnect/pkg/config"
	"bharatconnect/pkg/firebase"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/metrics"
	"bharatconnect/pkg/resilience"
)

// VaultStore is the union of what the keys service and the lifecycle manager
// need from vault storage
type VaultStore interface {
	GetVault(ctx context.Context, userID string) (*domain.KeyVault, error)
	SaveVault(ctx context.Context, vault *domain.KeyVault) error
	CreateVault(ctx context.Context, vault *domain.KeyVault) error
}

// Backends holds the directory and vault stores selected by DIRECTORY_BACKEND
type Backends struct {
	Directory keystore.Directory
	Vaults    VaultStore

	// Firebase is set for the firestore backend, Redis for selfhosted
	Firebase *firebase.App
	Redis    *database.RedisClient

	closers []func()
}

// Open connects to the configured directory backend. m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Backends, error) {
	switch cfg.Directory.Backend {
	case config.BackendFirestore:
		return openFirestore(ctx, cfg)
	case config.BackendSelfHosted:
		return openSelfHosted(ctx, cfg, m)
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.Directory.Backend)
	}
}

func openFirestore(ctx context.Context, cfg *config.Config) (*Backends, error) {
	app, err := firebase.NewApp(ctx, firebase.Config{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsPath: cfg.Firebase.CredentialsPath,
	})
	if err != nil {
		return nil, err
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}

	b := &Backends{
		Directory: fsrepo.NewDirectoryRepository(client),
		Vaults:    fsrepo.NewVaultRepository(client),
		Firebase:  app,
	}
	b.closers = append(b.closers, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Firestore client", zap.Error(err))
		}
	})

	logger.Info("Using Firestore directory backend", zap.String("project_id", app.ProjectID()))
	return b, nil
}

func openSelfHosted(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Backends, error) {
	redisDB, err := database.NewRedisDB(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	db, err := database.NewDB(ctx, cfg.Cockroach, nil)
	if err != nil {
		_ = redisDB.Close()
		return nil, fmt.Errorf("failed to connect to CockroachDB: %w", err)
	}

	vaults := cockroach.NewVaultRepository(db.Pool, m)
	if err := vaults.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		_ = redisDB.Close()
		return nil, err
	}

	b := &Backends{
		Directory: redisrepo.NewDirectoryRepository(redisDB, m),
		Vaults:    vaults,
		Redis:     redisDB,
	}
	b.closers = append(b.closers,
		func() { _ = redisDB.Close() },
		func() { _ = db.Close() },
	)

	logger.Info("Using self-hosted directory backend",
		zap.String("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
		zap.String("cockroach_database", cfg.Cockroach.Database))
	return b, nil
}

// Close releases backend connections in reverse order of opening
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// OpenBackupStore connects to the MinIO bucket holding encrypted backups
func OpenBackupStore(ctx context.Context, cfg config.MinIOConfig) (*miniorepo.BackupRepository, error) {
	client, err := database.NewMinIOClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return miniorepo.NewBackupRepository(client, cfg.Bucket, resilience.New(resilience.DefaultConfig("minio"))), nil
}

// BackupOptions maps the BACKUP_* settings onto backup.Options
func BackupOptions(cfg config.BackupConfig) backup.Options {
	opts := backup.DefaultOptions()

	switch cfg.KDF {
	case config.KDFArgon2id:
		opts.KDF = crypto.KDFConfig{
			Algorithm:  crypto.KDFArgon2id,
			Iterations: uint32(cfg.Argon2Time),
			MemoryKB:   uint32(cfg.Argon2MemoryKB),
			Threads:    uint8(cfg.Argon2Threads),
		}
	case config.KDFPBKDF2:
		opts.KDF = crypto.KDFConfig{
			Algorithm:  crypto.KDFPBKDF2SHA256,
			Iterations: uint32(cfg.PBKDF2Iterations),
		}
	}

	if cfg.MinPassphraseLength > 0 {
		opts.Policy.MinLength = cfg.MinPassphraseLength
	}
	return opts
}
