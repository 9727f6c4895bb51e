package domain

import (
	"time"
)

// ExportedKeyPair is an RSA-OAEP key pair in its portable string form.
// The public half is base64 SPKI and may be published; the private half is
// base64 PKCS8 and never leaves the device except inside a passphrase backup.
type ExportedKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// KeyVault marks a user who has completed initial key provisioning.
// Its existence drives the login-time lifecycle decision.
// Maps to CockroachDB key_vaults table and Firestore userKeys/{uid}
type KeyVault struct {
	UserID      string    `json:"user_id" db:"user_id" firestore:"userId"`
	ActiveKeyID string    `json:"active_key_id,omitempty" db:"active_key_id" firestore:"activeKeyId"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" firestore:"updatedAt"`
}

// DirectoryRecord is the single public-key slot of a user
type DirectoryRecord struct {
	UserID    string    `json:"user_id"`
	PublicKey string    `json:"public_key"` // Base64 SPKI
	UpdatedAt time.Time `json:"updated_at"`
}

// LifecycleAction is the outcome of the login-time key check
type LifecycleAction string

const (
	// LifecycleDeferred: no vault, no local key; onboarding provisions the first pair
	LifecycleDeferred LifecycleAction = "deferred"
	// LifecycleSessionKeyGenerated: vault exists but this device had no key
	LifecycleSessionKeyGenerated LifecycleAction = "session_key_generated"
	// LifecycleNone: vault and local key both present
	LifecycleNone LifecycleAction = "none"
	// LifecycleInconsistent: a local key without a vault; left untouched
	LifecycleInconsistent LifecycleAction = "inconsistent"
)

// PublishKeyRequest is the body of PUT /v1/keys
type PublishKeyRequest struct {
	PublicKey string `json:"public_key" binding:"required"`
}

// VaultStatus is returned by GET /v1/vault
type VaultStatus struct {
	Exists bool      `json:"exists"`
	Vault  *KeyVault `json:"vault,omitempty"`
}

// CreateVaultRequest is the body of POST /v1/vault
type CreateVaultRequest struct {
	ActiveKeyID string `json:"active_key_id"`
}
