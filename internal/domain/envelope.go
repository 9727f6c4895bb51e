package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bharatconnect/internal/crypto"
	apperrors "bharatconnect/pkg/errors"
)

// EncryptedMessagePayload is the stored form of one encrypted message body.
// EncryptedKeys maps every participant, sender included, to the message AES key
// wrapped under that participant's RSA public key.
type EncryptedMessagePayload struct {
	EncryptedText string            `json:"encryptedText"`
	IV            string            `json:"iv"`
	EncryptedKeys map[string]string `json:"encryptedKeys"`
}

// ParsePayload decodes and validates a JSON payload
func ParsePayload(raw []byte) (*EncryptedMessagePayload, error) {
	var p EncryptedMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperrors.MalformedPayloadError("payload is not a JSON envelope")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// PayloadFromMap builds a payload from loosely typed document data, such as a
// Firestore snapshot, and validates it.
func PayloadFromMap(m map[string]interface{}) (*EncryptedMessagePayload, error) {
	text, ok := m["encryptedText"].(string)
	if !ok {
		return nil, apperrors.MalformedPayloadError("encryptedText is missing")
	}
	iv, ok := m["iv"].(string)
	if !ok {
		return nil, apperrors.MalformedPayloadError("iv is missing")
	}

	keys := make(map[string]string)
	switch raw := m["encryptedKeys"].(type) {
	case map[string]interface{}:
		for uid, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, apperrors.MalformedPayloadError(fmt.Sprintf("encryptedKeys entry for %s is not a string", uid))
			}
			keys[uid] = s
		}
	case map[string]string:
		for uid, v := range raw {
			keys[uid] = v
		}
	default:
		return nil, apperrors.MalformedPayloadError("encryptedKeys is missing")
	}

	p := &EncryptedMessagePayload{EncryptedText: text, IV: iv, EncryptedKeys: keys}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that every envelope field is present and well formed
func (p *EncryptedMessagePayload) Validate() error {
	if p == nil {
		return apperrors.MalformedPayloadError("payload is nil")
	}

	ct, err := crypto.DecodeBase64(p.EncryptedText)
	if err != nil {
		return apperrors.MalformedPayloadError("encryptedText is not base64")
	}
	if len(ct) < crypto.GCMTagSize {
		return apperrors.MalformedPayloadError("encryptedText is too short")
	}

	iv, err := crypto.DecodeBase64(p.IV)
	if err != nil {
		return apperrors.MalformedPayloadError("iv is not base64")
	}
	if len(iv) != crypto.IVSize {
		return apperrors.MalformedPayloadError(fmt.Sprintf("iv must be %d bytes", crypto.IVSize))
	}

	if len(p.EncryptedKeys) == 0 {
		return apperrors.MalformedPayloadError("encryptedKeys is empty")
	}
	for uid, wrapped := range p.EncryptedKeys {
		if strings.TrimSpace(uid) == "" {
			return apperrors.MalformedPayloadError("encryptedKeys has an empty user id")
		}
		b, err := crypto.DecodeBase64(wrapped)
		if err != nil || len(b) == 0 {
			return apperrors.MalformedPayloadError(fmt.Sprintf("encryptedKeys entry for %s is not base64", uid))
		}
	}
	return nil
}

// WrappedKeyFor returns the wrapped AES key addressed to userID
func (p *EncryptedMessagePayload) WrappedKeyFor(userID string) (string, bool) {
	k, ok := p.EncryptedKeys[userID]
	return k, ok
}

// Recipients returns the participant IDs in sorted order
func (p *EncryptedMessagePayload) Recipients() []string {
	ids := make([]string, 0, len(p.EncryptedKeys))
	for uid := range p.EncryptedKeys {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	return ids
}

// DecryptState is how a message renders in a list
type DecryptState string

const (
	DecryptStateOK          DecryptState = "ok"
	DecryptStateNotReadable DecryptState = "not_readable"
	DecryptStateFailed      DecryptState = "failed"
)

// DecryptResult is a per-message render outcome that never aborts a list
type DecryptResult struct {
	Text  string       `json:"text,omitempty"`
	State DecryptState `json:"state"`
}
