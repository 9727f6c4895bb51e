package domain

import (
	"encoding/json"
	"time"
)

const (
	// BackupPackageVersion is the current BackupPackage format
	BackupPackageVersion = 1
	// BackupBundleVersion is the current BackupBundle format
	BackupBundleVersion = 1
)

// KDFParams records how the backup key was derived. All fields are non-secret.
// For argon2id, Iterations is the time cost and Memory is in KiB.
type KDFParams struct {
	Algorithm  string `json:"algorithm"`
	Salt       string `json:"salt"` // Base64
	Iterations uint32 `json:"iterations"`
	Memory     uint32 `json:"memory,omitempty"`
	Threads    uint8  `json:"threads,omitempty"`
}

// BackupPackage is passphrase-encrypted key or chat material
type BackupPackage struct {
	Version    int       `json:"version"`
	KDF        KDFParams `json:"kdf"`
	IV         string    `json:"iv"`         // Base64, 12 bytes
	Ciphertext string    `json:"ciphertext"` // Base64, AES-256-GCM with tag
}

// BackupBundle is the plaintext serialized into a BackupPackage by the
// settings export flow. PrivateKey is base64 PKCS8 when the key is included.
type BackupBundle struct {
	Version    int             `json:"version"`
	UserID     string          `json:"user_id"`
	PrivateKey string          `json:"private_key,omitempty"`
	Chats      json.RawMessage `json:"chats,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BackupObject describes a package held in cold storage
type BackupObject struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
