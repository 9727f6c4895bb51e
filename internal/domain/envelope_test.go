package domain

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bharatconnect/pkg/errors"
)

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func validPayload() *EncryptedMessagePayload {
	return &EncryptedMessagePayload{
		EncryptedText: b64(bytes.Repeat([]byte{1}, 21)),
		IV:            b64(bytes.Repeat([]byte{2}, 12)),
		EncryptedKeys: map[string]string{
			"alice": b64(bytes.Repeat([]byte{3}, 256)),
			"bob":   b64(bytes.Repeat([]byte{4}, 256)),
		},
	}
}

func TestParsePayload_Valid(t *testing.T) {
	raw := []byte(`{"encryptedText":"` + validPayload().EncryptedText +
		`","iv":"` + validPayload().IV +
		`","encryptedKeys":{"alice":"` + validPayload().EncryptedKeys["alice"] + `"}}`)

	p, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, p.Recipients())
	_, ok := p.WrappedKeyFor("alice")
	assert.True(t, ok)
	_, ok = p.WrappedKeyFor("mallory")
	assert.False(t, ok)
}

func TestValidate_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *EncryptedMessagePayload)
	}{
		{"missing text", func(p *EncryptedMessagePayload) { p.EncryptedText = "" }},
		{"text not base64", func(p *EncryptedMessagePayload) { p.EncryptedText = "***" }},
		{"text shorter than tag", func(p *EncryptedMessagePayload) { p.EncryptedText = b64([]byte("short")) }},
		{"missing iv", func(p *EncryptedMessagePayload) { p.IV = "" }},
		{"iv wrong length", func(p *EncryptedMessagePayload) { p.IV = b64(make([]byte, 16)) }},
		{"no keys", func(p *EncryptedMessagePayload) { p.EncryptedKeys = nil }},
		{"blank uid", func(p *EncryptedMessagePayload) { p.EncryptedKeys[" "] = b64([]byte{1}) }},
		{"key not base64", func(p *EncryptedMessagePayload) { p.EncryptedKeys["bob"] = "!!" }},
		{"key empty", func(p *EncryptedMessagePayload) { p.EncryptedKeys["bob"] = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)
		})
	}
}

func TestParsePayload_NotJSON(t *testing.T) {
	_, err := ParsePayload([]byte("hello"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}

func TestPayloadFromMap(t *testing.T) {
	v := validPayload()
	doc := map[string]interface{}{
		"encryptedText": v.EncryptedText,
		"iv":            v.IV,
		"encryptedKeys": map[string]interface{}{
			"alice": v.EncryptedKeys["alice"],
		},
		"senderId": "alice",
	}

	p, err := PayloadFromMap(doc)
	require.NoError(t, err)
	assert.Equal(t, v.IV, p.IV)

	doc["encryptedKeys"] = map[string]interface{}{"alice": 42}
	_, err = PayloadFromMap(doc)
	assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)

	delete(doc, "encryptedKeys")
	_, err = PayloadFromMap(doc)
	assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)

	_, err = PayloadFromMap(map[string]interface{}{"text": "plain message"})
	assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}
