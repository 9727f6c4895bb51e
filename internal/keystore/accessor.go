package keystore

import (
	"context"
	"crypto/rsa"
	"fmt"

	"go.uber.org/zap"

	"bharatconnect/internal/crypto"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/sanitize"
)

// localKeyPrefix namespaces private keys per user so several accounts on one
// device do not collide.
const localKeyPrefix = "privateKey_"

// LocalStore is device-persistent string storage
type LocalStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Directory maps a user ID to its single published public key (base64 SPKI).
// GetPublicKey fails with a KEY_NOT_FOUND AppError when nothing was published.
type Directory interface {
	GetPublicKey(ctx context.Context, userID string) (string, error)
	SetPublicKey(ctx context.Context, userID, publicKey string) error
}

// Accessor is the only component that reads or writes private key material
type Accessor struct {
	local    LocalStore
	dir      Directory
	provider crypto.Provider
}

// NewAccessor creates a key store accessor
func NewAccessor(local LocalStore, dir Directory, provider crypto.Provider) *Accessor {
	return &Accessor{
		local:    local,
		dir:      dir,
		provider: provider,
	}
}

// Provider returns the crypto provider keys are imported with
func (a *Accessor) Provider() crypto.Provider {
	return a.provider
}

// LocalKeyName returns the device storage key for userID's private key
func LocalKeyName(userID string) string {
	return localKeyPrefix + userID
}

// LoadLocalPrivateKey imports the device private key of userID
func (a *Accessor) LoadLocalPrivateKey(userID string) (*rsa.PrivateKey, error) {
	exported, err := a.ExportLocalPrivateKey(userID)
	if err != nil {
		return nil, err
	}
	priv, err := a.provider.ImportPrivateKey(exported)
	if err != nil {
		return nil, apperrors.InvalidKeyMaterialError("stored private key is unusable", err)
	}
	return priv, nil
}

// ExportLocalPrivateKey returns the stored base64 PKCS8 private key of userID
func (a *Accessor) ExportLocalPrivateKey(userID string) (string, error) {
	if err := checkUserID(userID); err != nil {
		return "", err
	}
	exported, ok, err := a.local.Get(LocalKeyName(userID))
	if err != nil {
		return "", apperrors.StorageError(fmt.Errorf("failed to read local key: %w", err))
	}
	if !ok || exported == "" {
		return "", apperrors.KeyNotFoundError("no local private key on this device")
	}
	return exported, nil
}

// SaveLocalPrivateKey stores a base64 PKCS8 private key for userID after
// checking that it imports.
func (a *Accessor) SaveLocalPrivateKey(userID, exportedPrivateKey string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	if _, err := a.provider.ImportPrivateKey(exportedPrivateKey); err != nil {
		return apperrors.InvalidKeyMaterialError("private key is not a valid PKCS8 RSA-2048 key", err)
	}
	if err := a.local.Set(LocalKeyName(userID), exportedPrivateKey); err != nil {
		return apperrors.StorageError(fmt.Errorf("failed to save local key: %w", err))
	}
	logger.Debug("Local private key saved", logger.UserID(userID))
	return nil
}

// HasLocalPrivateKey reports whether a private key is stored, without importing it
func (a *Accessor) HasLocalPrivateKey(userID string) (bool, error) {
	if err := checkUserID(userID); err != nil {
		return false, err
	}
	exported, ok, err := a.local.Get(LocalKeyName(userID))
	if err != nil {
		return false, apperrors.StorageError(fmt.Errorf("failed to read local key: %w", err))
	}
	return ok && exported != "", nil
}

// DeleteLocalPrivateKey removes the device private key of userID
func (a *Accessor) DeleteLocalPrivateKey(userID string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	if err := a.local.Delete(LocalKeyName(userID)); err != nil {
		return apperrors.StorageError(fmt.Errorf("failed to delete local key: %w", err))
	}
	logger.Debug("Local private key deleted", logger.UserID(userID))
	return nil
}

// FetchDirectoryPublicKey imports the published public key of userID.
// A user who never published fails with KEY_NOT_FOUND; nothing is retried.
func (a *Accessor) FetchDirectoryPublicKey(ctx context.Context, userID string) (*rsa.PublicKey, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	exported, err := a.dir.GetPublicKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exported == "" {
		return nil, apperrors.KeyNotFoundError("user has not published a public key")
	}
	pub, err := a.provider.ImportPublicKey(exported)
	if err != nil {
		logger.Warn("Directory holds an unusable public key", logger.UserID(userID), zap.Error(err))
		return nil, apperrors.InvalidKeyMaterialError("published public key is unusable", err)
	}
	return pub, nil
}

// PublishDirectoryPublicKey overwrites the directory public key of userID
func (a *Accessor) PublishDirectoryPublicKey(ctx context.Context, userID, exportedPublicKey string) error {
	if err := checkUserID(userID); err != nil {
		return err
	}
	if _, err := a.provider.ImportPublicKey(exportedPublicKey); err != nil {
		return apperrors.InvalidKeyMaterialError("public key is not a valid SPKI RSA-2048 key", err)
	}
	if err := a.dir.SetPublicKey(ctx, userID, exportedPublicKey); err != nil {
		return err
	}
	logger.Info("Public key published", logger.UserID(userID))
	return nil
}

func checkUserID(userID string) error {
	return sanitize.ValidateID("user id", userID)
}
