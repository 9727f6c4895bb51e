package keys

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/domain"
	"bharatconnect/internal/keystore"
	"bharatconnect/pkg/audit"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/sanitize"
)

// VaultStore persists key vaults. GetVault returns (nil, nil) when the user
// has none; CreateVault fails with VAULT_EXISTS when one is present.
type VaultStore interface {
	GetVault(ctx context.Context, userID string) (*domain.KeyVault, error)
	CreateVault(ctx context.Context, vault *domain.KeyVault) error
}

// Service is the server side of the public key directory and key vaults
type Service struct {
	dir      keystore.Directory
	vaults   VaultStore
	provider crypto.Provider
	audit    audit.Recorder
	now      func() time.Time
}

// NewService creates a new keys service
func NewService(dir keystore.Directory, vaults VaultStore, provider crypto.Provider) *Service {
	return &Service{
		dir:      dir,
		vaults:   vaults,
		provider: provider,
		audit:    audit.LogRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithAudit replaces the audit recorder
func (s *Service) WithAudit(r audit.Recorder) *Service {
	s.audit = r
	return s
}

// PublishKey stores publicKey as userID's directory entry. Only RSA-2048
// SPKI keys are accepted; a new key replaces the old one.
func (s *Service) PublishKey(ctx context.Context, userID, publicKey string) (err error) {
	if err := checkUserID(userID); err != nil {
		return err
	}
	defer func() { s.record(ctx, audit.EventKeyPublish, userID, err) }()

	if _, err := s.provider.ImportPublicKey(publicKey); err != nil {
		return apperrors.InvalidKeyMaterialError("public key must be base64 SPKI RSA-2048", err)
	}

	if err := s.dir.SetPublicKey(ctx, userID, publicKey); err != nil {
		return err
	}

	logger.Info("Public key published", logger.UserID(userID))
	return nil
}

// GetPublicKey returns userID's directory entry
func (s *Service) GetPublicKey(ctx context.Context, userID string) (*domain.DirectoryRecord, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	publicKey, err := s.dir.GetPublicKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.DirectoryRecord{UserID: userID, PublicKey: publicKey}, nil
}

// VaultStatus reports whether userID has completed initial provisioning
func (s *Service) VaultStatus(ctx context.Context, userID string) (*domain.VaultStatus, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	vault, err := s.vaults.GetVault(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.VaultStatus{Exists: vault != nil, Vault: vault}, nil
}

// CreateVault records initial provisioning for userID. The user must have
// published a public key first, and a vault can be created only once.
func (s *Service) CreateVault(ctx context.Context, userID, activeKeyID string) (_ *domain.KeyVault, err error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	defer func() { s.record(ctx, audit.EventVaultCreate, userID, err) }()

	if _, err := s.dir.GetPublicKey(ctx, userID); err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeKeyNotFound {
			return nil, apperrors.ConflictError("publish a public key before creating a vault")
		}
		return nil, err
	}

	now := s.now()
	vault := &domain.KeyVault{
		UserID:      userID,
		ActiveKeyID: strings.TrimSpace(activeKeyID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.vaults.CreateVault(ctx, vault); err != nil {
		return nil, err
	}

	logger.Info("Key vault created", logger.UserID(userID), zap.String("active_key_id", vault.ActiveKeyID))
	return vault, nil
}

// record writes an audit event for a key operation. Audit failures are logged
// and never fail the operation.
func (s *Service) record(ctx context.Context, eventType audit.EventType, userID string, err error) {
	if s.audit == nil {
		return
	}
	event := &audit.Event{
		UserID:    userID,
		EventType: eventType,
		Resource:  userID,
		Success:   err == nil,
	}
	if err != nil {
		event.ErrorCode = string(apperrors.CodeOf(err))
	}
	if aerr := s.audit.Record(ctx, event); aerr != nil {
		logger.Warn("Failed to record audit event",
			zap.String("event_type", string(eventType)), zap.Error(aerr))
	}
}

func checkUserID(userID string) error {
	return sanitize.ValidateID("user id", userID)
}
