package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// AESKeySize is the raw AES-256 key length
	AESKeySize = 32
	// IVSize is the AES-GCM nonce length
	IVSize = 12
	// GCMTagSize is the AES-GCM authentication tag length
	GCMTagSize = 16
)

// GenerateAESKey returns a fresh random 256-bit key
func (p *StdProvider) GenerateAESKey() ([]byte, error) {
	return p.random(AESKeySize)
}

// GenerateIV returns a fresh random 96-bit nonce
func (p *StdProvider) GenerateIV() ([]byte, error) {
	return p.random(IVSize)
}

// AESEncrypt seals plaintext with AES-256-GCM. The tag is appended to the
// ciphertext, matching Web Crypto output.
func (p *StdProvider) AESEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), nil
}

// AESDecrypt opens an AES-256-GCM ciphertext. Any wrong key, wrong IV or
// tampered byte yields ErrAuthentication.
func (p *StdProvider) AESDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < GCMTagSize {
		return nil, ErrAuthentication
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: AES key must be %d bytes, got %d", ErrInvalidKey, AESKeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: IV must be %d bytes, got %d", ErrInvalidKey, IVSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return cipher.NewGCM(block)
}
