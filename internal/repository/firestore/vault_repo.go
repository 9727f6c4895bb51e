package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bharatconnect/internal/domain"
	apperrors "bharatconnect/pkg/errors"
)

const vaultsCollection = "userKeys"

// VaultRepository stores key vaults at userKeys/{uid}
type VaultRepository struct {
	client *firestore.Client
}

// NewVaultRepository creates a new VaultRepository
func NewVaultRepository(client *firestore.Client) *VaultRepository {
	return &VaultRepository{client: client}
}

// GetVault returns the vault of userID, or nil when the user has none
func (r *VaultRepository) GetVault(ctx context.Context, userID string) (*domain.KeyVault, error) {
	snap, err := r.client.Collection(vaultsCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, backendError("failed to read key vault", err)
	}

	var vault domain.KeyVault
	if err := snap.DataTo(&vault); err != nil {
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to decode key vault: %w", err))
	}
	if vault.UserID == "" {
		vault.UserID = userID
	}
	return &vault, nil
}

// SaveVault writes vault, replacing the document
func (r *VaultRepository) SaveVault(ctx context.Context, vault *domain.KeyVault) error {
	if _, err := r.client.Collection(vaultsCollection).Doc(vault.UserID).Set(ctx, vault); err != nil {
		return backendError("failed to save key vault", err)
	}
	return nil
}

// CreateVault writes vault and fails with VAULT_EXISTS if one is present
func (r *VaultRepository) CreateVault(ctx context.Context, vault *domain.KeyVault) error {
	if _, err := r.client.Collection(vaultsCollection).Doc(vault.UserID).Create(ctx, vault); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return apperrors.ErrVaultExists
		}
		return backendError("failed to create key vault", err)
	}
	return nil
}
