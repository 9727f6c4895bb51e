package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bharatconnect/internal/domain"
	"bharatconnect/internal/keystore"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/metrics"
	"bharatconnect/pkg/sanitize"
)

// Vault exposes the per-user key vault record. GetVault returns nil, nil when
// the user has never been provisioned.
type Vault interface {
	GetVault(ctx context.Context, userID string) (*domain.KeyVault, error)
	SaveVault(ctx context.Context, vault *domain.KeyVault) error
}

// Service decides at login whether this device needs key material
type Service struct {
	keys  *keystore.Accessor
	vault Vault
	now   func() time.Time
}

// NewService creates a new key lifecycle service
func NewService(keys *keystore.Accessor, vault Vault) *Service {
	return &Service{
		keys:  keys,
		vault: vault,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// EnsureLocalKeyMaterial runs once per successful authentication. It never
// overwrites a local private key that is already present.
func (s *Service) EnsureLocalKeyMaterial(ctx context.Context, userID string) (domain.LifecycleAction, error) {
	hasLocal, err := s.keys.HasLocalPrivateKey(userID)
	if err != nil {
		return "", err
	}
	vault, err := s.vault.GetVault(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to read key vault: %w", err)
	}

	var action domain.LifecycleAction
	switch {
	case vault == nil && !hasLocal:
		// Onboarding creates the vault and the first key pair.
		action = domain.LifecycleDeferred

	case vault != nil && hasLocal:
		action = domain.LifecycleNone

	case vault == nil && hasLocal:
		logger.Warn("Local private key present without a key vault; leaving it untouched",
			logger.UserID(userID))
		action = domain.LifecycleInconsistent

	default:
		keyID, err := s.provisionKeyPair(ctx, userID, "session")
		if err != nil {
			return "", err
		}
		vault.ActiveKeyID = keyID
		vault.UpdatedAt = s.now()
		if err := s.vault.SaveVault(ctx, vault); err != nil {
			// The new key is stored and published, so the device is usable.
			logger.Warn("Failed to record active key in vault",
				logger.UserID(userID), zap.Error(err))
		}
		logger.Info("Session key pair generated for new device",
			logger.UserID(userID), zap.String("key_id", keyID))
		action = domain.LifecycleSessionKeyGenerated
	}

	metrics.RecordLifecycleDecision(string(action))
	return action, nil
}

// ProvisionInitialKeyPair generates a user's first key pair during onboarding
// and creates the vault. It refuses when a vault already exists.
func (s *Service) ProvisionInitialKeyPair(ctx context.Context, userID string) (*domain.KeyVault, error) {
	if err := sanitize.ValidateID("user id", userID); err != nil {
		return nil, err
	}
	existing, err := s.vault.GetVault(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read key vault: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrVaultExists
	}

	keyID, err := s.provisionKeyPair(ctx, userID, "onboarding")
	if err != nil {
		return nil, err
	}

	now := s.now()
	vault := &domain.KeyVault{
		UserID:      userID,
		ActiveKeyID: keyID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.vault.SaveVault(ctx, vault); err != nil {
		return nil, fmt.Errorf("failed to create key vault: %w", err)
	}

	logger.Info("Initial key pair provisioned", logger.UserID(userID), zap.String("key_id", keyID))
	return vault, nil
}

// ClearLocalKeyMaterial removes this device's private key, as on logout
func (s *Service) ClearLocalKeyMaterial(userID string) error {
	if err := s.keys.DeleteLocalPrivateKey(userID); err != nil {
		return err
	}
	logger.Info("Local key material cleared", logger.UserID(userID))
	return nil
}

// provisionKeyPair stores a fresh private key locally, then publishes its
// public half. A failed publish removes the local key again so the next login
// retries instead of keeping a key nobody can encrypt to.
func (s *Service) provisionKeyPair(ctx context.Context, userID, reason string) (string, error) {
	provider := s.keys.Provider()

	priv, err := provider.GenerateRSAKeyPair()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to generate key pair", err)
	}
	publicKey, err := provider.ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to export public key", err)
	}
	privateKey, err := provider.ExportPrivateKey(priv)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to export private key", err)
	}

	if err := s.keys.SaveLocalPrivateKey(userID, privateKey); err != nil {
		return "", err
	}

	if err := s.keys.PublishDirectoryPublicKey(ctx, userID, publicKey); err != nil {
		if delErr := s.keys.DeleteLocalPrivateKey(userID); delErr != nil {
			logger.Error("Failed to roll back local key after publish failure",
				logger.UserID(userID), zap.Error(delErr))
		}
		return "", fmt.Errorf("failed to publish public key: %w", err)
	}

	metrics.RecordKeyPairGenerated(reason)
	return uuid.New().String(), nil
}
