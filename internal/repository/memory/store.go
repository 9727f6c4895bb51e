package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bharatconnect/internal/domain"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
)

// LocalStore is an in-process device store. It counts writes so callers can
// assert that an operation left storage untouched.
type LocalStore struct {
	mu     sync.RWMutex
	data   map[string]string
	writes int
}

// NewLocalStore creates an empty local store
func NewLocalStore() *LocalStore {
	return &LocalStore{data: make(map[string]string)}
}

// Get returns the value stored under key
func (s *LocalStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key
func (s *LocalStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.writes++
	logger.Debug("Local entry set", zap.String("key", key))
	return nil
}

// Delete removes key
func (s *LocalStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.writes++
	return nil
}

// Writes returns the number of Set and Delete calls
func (s *LocalStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Directory is an in-process public key directory
type Directory struct {
	mu      sync.RWMutex
	records map[string]*domain.DirectoryRecord
	writes  int
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{records: make(map[string]*domain.DirectoryRecord)}
}

// GetPublicKey returns the published key of userID
func (d *Directory) GetPublicKey(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[userID]
	if !ok {
		return "", apperrors.KeyNotFoundError("user has not published a public key")
	}
	return rec.PublicKey, nil
}

// SetPublicKey overwrites the published key of userID
func (d *Directory) SetPublicKey(ctx context.Context, userID, publicKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[userID] = &domain.DirectoryRecord{UserID: userID, PublicKey: publicKey, UpdatedAt: time.Now().UTC()}
	d.writes++
	return nil
}

// Writes returns the number of SetPublicKey calls
func (d *Directory) Writes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}

// VaultStore is an in-process key vault store
type VaultStore struct {
	mu     sync.RWMutex
	vaults map[string]domain.KeyVault
	writes int
}

// NewVaultStore creates an empty vault store
func NewVaultStore() *VaultStore {
	return &VaultStore{vaults: make(map[string]domain.KeyVault)}
}

// GetVault returns the vault of userID, or nil when none exists
func (v *VaultStore) GetVault(ctx context.Context, userID string) (*domain.KeyVault, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	vault, ok := v.vaults[userID]
	if !ok {
		return nil, nil
	}
	return &vault, nil
}

// SaveVault creates or replaces a vault
func (v *VaultStore) SaveVault(ctx context.Context, vault *domain.KeyVault) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vaults[vault.UserID] = *vault
	v.writes++
	return nil
}

// CreateVault stores vault unless userID already has one
func (v *VaultStore) CreateVault(ctx context.Context, vault *domain.KeyVault) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.vaults[vault.UserID]; ok {
		return apperrors.ErrVaultExists
	}
	v.vaults[vault.UserID] = *vault
	v.writes++
	return nil
}

// Writes returns the number of SaveVault calls
func (v *VaultStore) Writes() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.writes
}
