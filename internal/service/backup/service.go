package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/domain"
	"bharatconnect/internal/keystore"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/metrics"
	"bharatconnect/pkg/passphrase"
	"bharatconnect/pkg/sanitize"
)

// Store keeps serialized backup packages in cold storage, per user
type Store interface {
	Put(ctx context.Context, userID, name string, data []byte) error
	Get(ctx context.Context, userID, name string) ([]byte, error)
	List(ctx context.Context, userID string) ([]domain.BackupObject, error)
}

// Vault records which key is active for a user. GetVault returns nil, nil when
// the user has never been provisioned.
type Vault interface {
	GetVault(ctx context.Context, userID string) (*domain.KeyVault, error)
	SaveVault(ctx context.Context, vault *domain.KeyVault) error
}

// Options configures backup encryption
type Options struct {
	KDF    crypto.KDFConfig
	Policy passphrase.Policy
}

// DefaultOptions uses PBKDF2-SHA256 at 600000 iterations and an 8 character minimum
func DefaultOptions() Options {
	return Options{
		KDF:    crypto.DefaultKDFConfig(),
		Policy: passphrase.DefaultPolicy(),
	}
}

// Service encrypts key and chat material under a user passphrase
type Service struct {
	keys     *keystore.Accessor
	provider crypto.Provider
	store    Store
	vault    Vault
	opts     Options
	now      func() time.Time
}

// NewService creates a new backup service. store may be nil when cold storage
// is not configured.
func NewService(keys *keystore.Accessor, store Store, opts Options) *Service {
	return &Service{
		keys:     keys,
		provider: keys.Provider(),
		store:    store,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithVault sets the vault that RestoreBundle points at a restored key
func (s *Service) WithVault(v Vault) *Service {
	s.vault = v
	return s
}

// EncryptForBackup derives a key from pass with a fresh salt and seals payload
// under a fresh IV. Encrypting the same input twice gives different packages.
func (s *Service) EncryptForBackup(payload []byte, pass string) (*domain.BackupPackage, error) {
	if err := s.opts.Policy.Validate(pass); err != nil {
		return nil, err
	}

	salt, err := s.provider.GenerateSalt()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to generate salt", err)
	}
	key, err := crypto.DeriveKey(pass, salt, s.opts.KDF)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to derive backup key", err)
	}
	defer crypto.Wipe(key)

	iv, err := s.provider.GenerateIV()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to generate IV", err)
	}
	ciphertext, err := s.provider.AESEncrypt(key, iv, payload)
	if err != nil {
		metrics.RecordBackupOperation("encrypt", s.opts.KDF.Algorithm, "error")
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encrypt backup", err)
	}

	metrics.RecordBackupOperation("encrypt", s.opts.KDF.Algorithm, "ok")

	return &domain.BackupPackage{
		Version: domain.BackupPackageVersion,
		KDF: domain.KDFParams{
			Algorithm:  s.opts.KDF.Algorithm,
			Salt:       crypto.EncodeBase64(salt),
			Iterations: s.opts.KDF.Iterations,
			Memory:     s.opts.KDF.MemoryKB,
			Threads:    s.opts.KDF.Threads,
		},
		IV:         crypto.EncodeBase64(iv),
		Ciphertext: crypto.EncodeBase64(ciphertext),
	}, nil
}

// DecryptFromBackup re-derives the key from the stored parameters and opens
// the package. A wrong passphrase and a damaged package are indistinguishable;
// both fail with WRONG_PASSPHRASE_OR_CORRUPT.
func (s *Service) DecryptFromBackup(pkg *domain.BackupPackage, pass string) ([]byte, error) {
	plaintext, err := s.open(pkg, pass)
	if err != nil {
		algorithm := ""
		if pkg != nil {
			algorithm = pkg.KDF.Algorithm
		}
		metrics.RecordBackupOperation("decrypt", algorithm, "error")
		return nil, apperrors.WrongPassphraseError(err)
	}
	metrics.RecordBackupOperation("decrypt", pkg.KDF.Algorithm, "ok")
	return plaintext, nil
}

func (s *Service) open(pkg *domain.BackupPackage, pass string) ([]byte, error) {
	if pkg == nil {
		return nil, fmt.Errorf("package is nil")
	}
	if pkg.Version != domain.BackupPackageVersion {
		return nil, fmt.Errorf("unsupported package version %d", pkg.Version)
	}

	salt, err := crypto.DecodeBase64(pkg.KDF.Salt)
	if err != nil {
		return nil, err
	}
	iv, err := crypto.DecodeBase64(pkg.IV)
	if err != nil {
		return nil, err
	}
	ciphertext, err := crypto.DecodeBase64(pkg.Ciphertext)
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveKey(pass, salt, crypto.KDFConfig{
		Algorithm:  pkg.KDF.Algorithm,
		Iterations: pkg.KDF.Iterations,
		MemoryKB:   pkg.KDF.Memory,
		Threads:    pkg.KDF.Threads,
	})
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	return s.provider.AESDecrypt(key, iv, ciphertext)
}

// ExportBundle serializes the chats and, when includeKey is set, this device's
// private key for userID, then encrypts the bundle under pass.
func (s *Service) ExportBundle(ctx context.Context, userID string, chats json.RawMessage, includeKey bool, pass string) (*domain.BackupPackage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sanitize.ValidateID("user id", userID); err != nil {
		return nil, err
	}
	if !includeKey && len(chats) == 0 {
		return nil, apperrors.ValidationError("nothing to back up")
	}
	if len(chats) > 0 && !json.Valid(chats) {
		return nil, apperrors.ValidationError("chats must be valid JSON")
	}

	bundle := domain.BackupBundle{
		Version:   domain.BackupBundleVersion,
		UserID:    userID,
		Chats:     chats,
		CreatedAt: s.now(),
	}
	if includeKey {
		exported, err := s.keys.ExportLocalPrivateKey(userID)
		if err != nil {
			return nil, err
		}
		bundle.PrivateKey = exported
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to serialize backup", err)
	}
	defer crypto.Wipe(raw)

	pkg, err := s.EncryptForBackup(raw, pass)
	if err != nil {
		return nil, err
	}

	logger.Info("Backup bundle exported",
		logger.UserID(userID),
		zap.Bool("includes_key", includeKey),
		zap.Int("chats_bytes", len(chats)))
	return pkg, nil
}

// RestoreBundle decrypts a bundle for userID. A bundle that carries a private
// key replaces this device's local key.
func (s *Service) RestoreBundle(ctx context.Context, userID string, pkg *domain.BackupPackage, pass string) (*domain.BackupBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.DecryptFromBackup(pkg, pass)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(raw)

	var bundle domain.BackupBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, apperrors.WrongPassphraseError(fmt.Errorf("decrypted backup is not a bundle"))
	}
	if bundle.UserID != userID {
		return nil, apperrors.ForbiddenError("backup belongs to a different account")
	}

	if bundle.PrivateKey != "" {
		if err := s.restoreKey(ctx, userID, bundle.PrivateKey); err != nil {
			return nil, err
		}
	}

	return &bundle, nil
}

// restoreKey makes a restored private key the active one: it is saved locally,
// its public half replaces the directory entry and the vault records a new key
// ID. A failed publish puts the previous local key back.
func (s *Service) restoreKey(ctx context.Context, userID, exportedPrivateKey string) error {
	priv, err := s.provider.ImportPrivateKey(exportedPrivateKey)
	if err != nil {
		return apperrors.InvalidKeyMaterialError("backup carries an unusable private key", err)
	}
	publicKey, err := s.provider.ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to export public key", err)
	}

	previous, err := s.keys.ExportLocalPrivateKey(userID)
	if err != nil && !errors.Is(err, apperrors.ErrKeyNotFound) {
		return err
	}

	if err := s.keys.SaveLocalPrivateKey(userID, exportedPrivateKey); err != nil {
		return err
	}
	if err := s.keys.PublishDirectoryPublicKey(ctx, userID, publicKey); err != nil {
		s.rollbackKey(userID, previous)
		return fmt.Errorf("failed to publish restored public key: %w", err)
	}

	keyID := uuid.New().String()
	if s.vault != nil {
		s.recordActiveKey(ctx, userID, keyID)
	}

	logger.Info("Private key restored from backup",
		logger.UserID(userID), zap.String("key_id", keyID))
	return nil
}

func (s *Service) rollbackKey(userID, previous string) {
	var err error
	if previous == "" {
		err = s.keys.DeleteLocalPrivateKey(userID)
	} else {
		err = s.keys.SaveLocalPrivateKey(userID, previous)
	}
	if err != nil {
		logger.Error("Failed to roll back local key after publish failure",
			logger.UserID(userID), zap.Error(err))
	}
}

func (s *Service) recordActiveKey(ctx context.Context, userID, keyID string) {
	vault, err := s.vault.GetVault(ctx, userID)
	if err != nil {
		logger.Warn("Failed to read key vault after restore", logger.UserID(userID), zap.Error(err))
		return
	}
	if vault == nil {
		logger.Warn("Key restored for a user without a key vault", logger.UserID(userID))
		return
	}
	vault.ActiveKeyID = keyID
	vault.UpdatedAt = s.now()
	if err := s.vault.SaveVault(ctx, vault); err != nil {
		// The key is stored and published, so the device is usable.
		logger.Warn("Failed to record restored key in vault", logger.UserID(userID), zap.Error(err))
	}
}

// Upload writes pkg to cold storage and returns its object name
func (s *Service) Upload(ctx context.Context, userID string, pkg *domain.BackupPackage) (string, error) {
	if s.store == nil {
		return "", apperrors.ServiceUnavailableError("backup storage is not configured")
	}
	if err := sanitize.ValidateID("user id", userID); err != nil {
		return "", err
	}

	data, err := json.Marshal(pkg)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to serialize package", err)
	}

	name := fmt.Sprintf("backup-%s-%s.json", s.now().Format("20060102T150405Z"), uuid.New().String()[:8])
	if err := s.store.Put(ctx, userID, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Download fetches and parses a package from cold storage
func (s *Service) Download(ctx context.Context, userID, name string) (*domain.BackupPackage, error) {
	if s.store == nil {
		return nil, apperrors.ServiceUnavailableError("backup storage is not configured")
	}
	if err := checkObjectName(name); err != nil {
		return nil, err
	}

	data, err := s.store.Get(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return DecodePackage(data)
}

// List returns the packages stored for userID
func (s *Service) List(ctx context.Context, userID string) ([]domain.BackupObject, error) {
	if s.store == nil {
		return nil, apperrors.ServiceUnavailableError("backup storage is not configured")
	}
	return s.store.List(ctx, userID)
}

// DecodePackage parses a serialized package. Unparseable input is reported the
// same way as a failed decryption.
func DecodePackage(data []byte) (*domain.BackupPackage, error) {
	var pkg domain.BackupPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, apperrors.WrongPassphraseError(fmt.Errorf("package is not JSON"))
	}
	return &pkg, nil
}

func checkObjectName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return apperrors.ValidationError("invalid backup name")
	}
	return nil
}
