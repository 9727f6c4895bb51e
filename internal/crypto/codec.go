package crypto

import (
	"encoding/base64"
	"runtime"
)

// EncodeBase64 encodes b with the standard padded alphabet
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 reverses EncodeBase64. The empty string decodes to an empty slice.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrEncoding
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// Wipe zeroes b. Best effort; used on raw AES keys and derived keys.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
