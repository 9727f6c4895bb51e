package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

const (
	// RSAKeyBits is the modulus size of every key pair
	RSAKeyBits = 2048
	// RSAPublicExponent is the fixed public exponent
	RSAPublicExponent = 65537
	// MaxOAEPPlaintext is the largest RSA-OAEP/SHA-256 input for a 2048-bit key
	MaxOAEPPlaintext = RSAKeyBits/8 - 2*sha256.Size - 2
)

// GenerateRSAKeyPair creates a 2048-bit RSA key with e=65537
func (p *StdProvider) GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(p.rand, RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return priv, nil
}

// ExportPublicKey encodes pub as base64 SPKI
func (p *StdProvider) ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", ErrInvalidKey)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return EncodeBase64(der), nil
}

// ExportPrivateKey encodes priv as base64 PKCS8
func (p *StdProvider) ExportPrivateKey(priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", ErrInvalidKey)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	defer Wipe(der)
	return EncodeBase64(der), nil
}

// ImportPublicKey decodes a base64 SPKI RSA-2048 public key
func (p *StdProvider) ImportPublicKey(spkiBase64 string) (*rsa.PublicKey, error) {
	der, err := DecodeBase64(spkiBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not base64", ErrInvalidKey)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: not an SPKI public key", ErrInvalidKey)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", ErrInvalidKey)
	}
	if err := checkRSAParams(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// ImportPrivateKey decodes a base64 PKCS8 RSA-2048 private key
func (p *StdProvider) ImportPrivateKey(pkcs8Base64 string) (*rsa.PrivateKey, error) {
	der, err := DecodeBase64(pkcs8Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: private key is not base64", ErrInvalidKey)
	}
	defer Wipe(der)

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: not a PKCS8 private key", ErrInvalidKey)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not RSA", ErrInvalidKey)
	}
	if err := checkRSAParams(&priv.PublicKey); err != nil {
		return nil, err
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return priv, nil
}

// RSAEncrypt encrypts a short secret (an AES key) with RSA-OAEP/SHA-256 and an
// empty label. Longer input is rejected rather than chunked.
func (p *StdProvider) RSAEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrInvalidKey)
	}
	if len(plaintext) > pub.Size()-2*sha256.Size-2 {
		return nil, ErrPlaintextTooLarge
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), p.rand, pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt with RSA-OAEP: %w", err)
	}
	return ct, nil
}

// RSADecrypt reverses RSAEncrypt. Padding failures yield ErrAuthentication.
func (p *StdProvider) RSADecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidKey)
	}
	pt, err := rsa.DecryptOAEP(sha256.New(), p.rand, priv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return pt, nil
}

func checkRSAParams(pub *rsa.PublicKey) error {
	if pub.N == nil || pub.N.BitLen() != RSAKeyBits {
		return fmt.Errorf("%w: RSA modulus must be %d bits", ErrInvalidKey, RSAKeyBits)
	}
	if pub.E != RSAPublicExponent {
		return fmt.Errorf("%w: RSA public exponent must be %d", ErrInvalidKey, RSAPublicExponent)
	}
	return nil
}
