package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoredEnvelope is an encrypted message as kept by the envelope store.
// The server never sees plaintext; it only checks payload shape.
// Maps to Cassandra message_envelopes table
type StoredEnvelope struct {
	ConversationID string                  `json:"conversation_id"`
	MessageID      uuid.UUID               `json:"message_id"`
	SenderID       string                  `json:"sender_id"`
	Payload        EncryptedMessagePayload `json:"payload"`
	SentAt         time.Time               `json:"sent_at"`
}

// StoreEnvelopeRequest is the body of POST /v1/conversations/:id/messages
type StoreEnvelopeRequest struct {
	Payload EncryptedMessagePayload `json:"payload" binding:"required"`
}

// EnvelopePage is one page of stored envelopes, newest first
type EnvelopePage struct {
	Envelopes  []*StoredEnvelope `json:"envelopes"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}
