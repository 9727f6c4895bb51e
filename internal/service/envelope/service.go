package envelope

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bharatconnect/internal/domain"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/pagination"
	"bharatconnect/pkg/sanitize"
)

// Store persists encrypted envelopes per conversation
type Store interface {
	Save(ctx context.Context, env *domain.StoredEnvelope) error
	ListByConversation(ctx context.Context, conversationID string, limit int, cursor string) (*domain.EnvelopePage, error)
}

// Service accepts and serves encrypted message payloads. It checks shape and
// addressing only; it holds no keys and never decrypts.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new envelope service
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Store validates payload and saves it as a message from senderID. The
// sender must be one of the payload's recipients, otherwise they could not
// read their own message back.
func (s *Service) Store(ctx context.Context, senderID, conversationID string, payload *domain.EncryptedMessagePayload) (*domain.StoredEnvelope, error) {
	if err := sanitize.ValidateID("sender id", senderID); err != nil {
		return nil, err
	}
	if err := sanitize.ValidateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if _, ok := payload.WrappedKeyFor(senderID); !ok {
		return nil, apperrors.MalformedPayloadError("sender is missing from encryptedKeys")
	}

	env := &domain.StoredEnvelope{
		ConversationID: conversationID,
		SenderID:       senderID,
		Payload:        *payload,
		SentAt:         s.now(),
	}
	if err := s.store.Save(ctx, env); err != nil {
		return nil, err
	}

	logger.Debug("Envelope stored",
		zap.String("conversation_id", conversationID),
		zap.String("message_id", env.MessageID.String()),
		zap.Int("recipients", len(payload.EncryptedKeys)))
	return env, nil
}

// List returns a page of conversationID's envelopes that are addressed to
// requesterID. Envelopes without an entry for the requester are dropped, so a
// page can hold fewer than limit items while HasMore is still true.
func (s *Service) List(ctx context.Context, requesterID, conversationID string, params *pagination.CursorParams) (*domain.EnvelopePage, error) {
	if err := sanitize.ValidateID("user id", requesterID); err != nil {
		return nil, err
	}
	if err := sanitize.ValidateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	if params == nil {
		params = &pagination.CursorParams{Limit: pagination.DefaultLimit}
	}

	page, err := s.store.ListByConversation(ctx, conversationID, pagination.ClampLimit(params.Limit), params.Cursor)
	if err != nil {
		return nil, err
	}

	visible := page.Envelopes[:0]
	for _, env := range page.Envelopes {
		if _, ok := env.Payload.WrappedKeyFor(requesterID); ok {
			visible = append(visible, env)
		}
	}
	page.Envelopes = visible

	return page, nil
}
