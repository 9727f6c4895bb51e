package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrAuthentication is returned when AES-GCM tag verification fails
	ErrAuthentication = errors.New("crypto: message authentication failed")
	// ErrInvalidKey is returned for keys of the wrong type, size or encoding
	ErrInvalidKey = errors.New("crypto: invalid key")
	// ErrPlaintextTooLarge is returned when RSA-OAEP input exceeds the padding limit
	ErrPlaintextTooLarge = errors.New("crypto: plaintext too large for RSA-OAEP")
	// ErrEncoding is returned for malformed base64
	ErrEncoding = errors.New("crypto: invalid base64")
)

// Provider is the set of primitives the key store, lifecycle manager, message
// engine and backup service need. StdProvider implements it on the Go standard
// crypto packages; tests may substitute their own.
type Provider interface {
	GenerateRSAKeyPair() (*rsa.PrivateKey, error)
	ExportPublicKey(pub *rsa.PublicKey) (string, error)
	ExportPrivateKey(priv *rsa.PrivateKey) (string, error)
	ImportPublicKey(spkiBase64 string) (*rsa.PublicKey, error)
	ImportPrivateKey(pkcs8Base64 string) (*rsa.PrivateKey, error)
	RSAEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error)
	RSADecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error)

	GenerateAESKey() ([]byte, error)
	GenerateIV() ([]byte, error)
	GenerateSalt() ([]byte, error)
	AESEncrypt(key, iv, plaintext []byte) ([]byte, error)
	AESDecrypt(key, iv, ciphertext []byte) ([]byte, error)
}

// StdProvider implements Provider
type StdProvider struct {
	rand io.Reader
}

// NewStdProvider returns a provider reading randomness from crypto/rand
func NewStdProvider() *StdProvider {
	return &StdProvider{rand: rand.Reader}
}

// NewStdProviderWithRand returns a provider reading randomness from r
func NewStdProviderWithRand(r io.Reader) *StdProvider {
	return &StdProvider{rand: r}
}

func (p *StdProvider) random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(p.rand, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
