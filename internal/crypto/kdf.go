package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Passphrase KDF identifiers as stored in backup packages
const (
	KDFPBKDF2SHA256 = "pbkdf2-sha256"
	KDFArgon2id     = "argon2id"
)

const (
	// SaltSize is the length of a fresh KDF salt
	SaltSize = 16
	// DerivedKeySize is the AES-256 key length produced by DeriveKey
	DerivedKeySize = AESKeySize

	DefaultPBKDF2Iterations = 600000
	DefaultArgon2Time       = 3
	DefaultArgon2MemoryKB   = 64 * 1024
	DefaultArgon2Threads    = 4

	// Ceilings bound the work a crafted package can demand of the decryptor.
	MaxPBKDF2Iterations = 10000000
	MaxArgon2Time       = 16
	MaxArgon2MemoryKB   = 1024 * 1024
	MaxArgon2Threads    = 16
)

// ErrKDFParams is returned for unknown algorithms or out-of-bounds parameters
var ErrKDFParams = errors.New("crypto: invalid KDF parameters")

// KDFConfig parameterizes DeriveKey. For argon2id, Iterations is the time cost.
type KDFConfig struct {
	Algorithm  string
	Iterations uint32
	MemoryKB   uint32
	Threads    uint8
}

// GenerateSalt returns a fresh random KDF salt
func (p *StdProvider) GenerateSalt() ([]byte, error) {
	return p.random(SaltSize)
}

// DefaultKDFConfig returns the PBKDF2-SHA256 configuration, the one Web Crypto
// clients can also derive.
func DefaultKDFConfig() KDFConfig {
	return KDFConfig{Algorithm: KDFPBKDF2SHA256, Iterations: DefaultPBKDF2Iterations}
}

// DefaultArgon2Config returns the argon2id configuration
func DefaultArgon2Config() KDFConfig {
	return KDFConfig{
		Algorithm:  KDFArgon2id,
		Iterations: DefaultArgon2Time,
		MemoryKB:   DefaultArgon2MemoryKB,
		Threads:    DefaultArgon2Threads,
	}
}

// Validate checks the configuration against the ceilings
func (c KDFConfig) Validate() error {
	switch c.Algorithm {
	case KDFPBKDF2SHA256:
		if c.Iterations < 1 || c.Iterations > MaxPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations %d out of range", ErrKDFParams, c.Iterations)
		}
	case KDFArgon2id:
		if c.Iterations < 1 || c.Iterations > MaxArgon2Time {
			return fmt.Errorf("%w: argon2 time %d out of range", ErrKDFParams, c.Iterations)
		}
		if c.MemoryKB < 8*uint32(c.Threads) || c.MemoryKB > MaxArgon2MemoryKB {
			return fmt.Errorf("%w: argon2 memory %d out of range", ErrKDFParams, c.MemoryKB)
		}
		if c.Threads < 1 || c.Threads > MaxArgon2Threads {
			return fmt.Errorf("%w: argon2 threads %d out of range", ErrKDFParams, c.Threads)
		}
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrKDFParams, c.Algorithm)
	}
	return nil
}

// DeriveKey stretches passphrase into a 32-byte key
func DeriveKey(passphrase string, salt []byte, cfg KDFConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes", ErrKDFParams, SaltSize)
	}

	switch cfg.Algorithm {
	case KDFArgon2id:
		return argon2.IDKey([]byte(passphrase), salt, cfg.Iterations, cfg.MemoryKB, cfg.Threads, DerivedKeySize), nil
	default:
		return pbkdf2.Key([]byte(passphrase), salt, int(cfg.Iterations), DerivedKeySize, sha256.New), nil
	}
}
