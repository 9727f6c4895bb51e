package cockroach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bharatconnect/internal/domain"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/metrics"
)

// VaultSchema creates the key_vaults table
const VaultSchema = `
	CREATE TABLE IF NOT EXISTS key_vaults (
		user_id       STRING PRIMARY KEY,
		active_key_id STRING NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// VaultRepository stores key vault records in CockroachDB
type VaultRepository struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewVaultRepository creates a new VaultRepository. m may be nil.
func NewVaultRepository(pool *pgxpool.Pool, m *metrics.Metrics) *VaultRepository {
	return &VaultRepository{pool: pool, metrics: m}
}

// EnsureSchema creates the key_vaults table if it is missing
func (r *VaultRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, VaultSchema); err != nil {
		return fmt.Errorf("failed to create key_vaults table: %w", err)
	}
	return nil
}

// GetVault returns the vault of userID, or nil when the user has none
func (r *VaultRepository) GetVault(ctx context.Context, userID string) (*domain.KeyVault, error) {
	query := `SELECT user_id, active_key_id, created_at, updated_at FROM key_vaults WHERE user_id = $1`

	start := time.Now()
	vault := &domain.KeyVault{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&vault.UserID,
		&vault.ActiveKeyID,
		&vault.CreatedAt,
		&vault.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		r.record("select", start, nil)
		return nil, nil
	}
	r.record("select", start, err)
	if err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to get key vault: %w", err))
	}

	return vault, nil
}

// SaveVault inserts or updates a vault. created_at is kept on update.
func (r *VaultRepository) SaveVault(ctx context.Context, vault *domain.KeyVault) error {
	query := `
		INSERT INTO key_vaults (user_id, active_key_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET active_key_id = EXCLUDED.active_key_id, updated_at = EXCLUDED.updated_at
	`

	start := time.Now()
	_, err := r.pool.Exec(ctx, query, vault.UserID, vault.ActiveKeyID, vault.CreatedAt, vault.UpdatedAt)
	r.record("upsert", start, err)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to save key vault: %w", err))
	}

	return nil
}

// CreateVault inserts a vault and fails with VAULT_EXISTS if one is present
func (r *VaultRepository) CreateVault(ctx context.Context, vault *domain.KeyVault) error {
	query := `
		INSERT INTO key_vaults (user_id, active_key_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`

	start := time.Now()
	tag, err := r.pool.Exec(ctx, query, vault.UserID, vault.ActiveKeyID, vault.CreatedAt, vault.UpdatedAt)
	r.record("insert", start, err)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to create key vault: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrVaultExists
	}

	return nil
}

func (r *VaultRepository) record(operation string, start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.RecordDBQuery(operation, "key_vaults", time.Since(start), err)
	}
}
