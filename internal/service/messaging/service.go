package messaging

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/domain"
	"bharatconnect/internal/keystore"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/metrics"
	"bharatconnect/pkg/sanitize"
)

// maxConcurrentLookups bounds directory reads in flight for one message
const maxConcurrentLookups = 16

// Service builds and opens hybrid RSA-OAEP + AES-GCM message envelopes
type Service struct {
	keys *keystore.Accessor
}

// NewService creates a new message engine
func NewService(keys *keystore.Accessor) *Service {
	return &Service{keys: keys}
}

// EncryptForParticipants encrypts plaintext once under a fresh AES key and
// wraps that key for every participant and the sender. If any of them has no
// usable published key the whole call fails and no payload is returned.
func (s *Service) EncryptForParticipants(ctx context.Context, plaintext string, participantIDs []string, senderID string) (*domain.EncryptedMessagePayload, error) {
	allUIDs, err := recipients(participantIDs, senderID)
	if err != nil {
		metrics.RecordEnvelopeEncrypt("invalid", 0)
		return nil, err
	}

	pubs, err := s.resolvePublicKeys(ctx, allUIDs)
	if err != nil {
		metrics.RecordEnvelopeEncrypt("recipient_error", 0)
		return nil, err
	}

	provider := s.keys.Provider()

	aesKey, err := provider.GenerateAESKey()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to generate message key", err)
	}
	defer crypto.Wipe(aesKey)

	iv, err := provider.GenerateIV()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to generate IV", err)
	}

	ciphertext, err := provider.AESEncrypt(aesKey, iv, []byte(plaintext))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encrypt message", err)
	}

	encryptedKeys := make(map[string]string, len(allUIDs))
	for i, uid := range allUIDs {
		wrapped, err := provider.RSAEncrypt(pubs[i], aesKey)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to wrap message key", err)
		}
		encryptedKeys[uid] = crypto.EncodeBase64(wrapped)
	}

	metrics.RecordEnvelopeEncrypt("ok", len(allUIDs))

	return &domain.EncryptedMessagePayload{
		EncryptedText: crypto.EncodeBase64(ciphertext),
		IV:            crypto.EncodeBase64(iv),
		EncryptedKeys: encryptedKeys,
	}, nil
}

// DecryptForSelf opens payload with this device's private key for myUserID
func (s *Service) DecryptForSelf(ctx context.Context, payload *domain.EncryptedMessagePayload, myUserID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := payload.Validate(); err != nil {
		metrics.RecordEnvelopeDecrypt("malformed")
		return "", err
	}

	wrapped, ok := payload.WrappedKeyFor(myUserID)
	if !ok {
		metrics.RecordEnvelopeDecrypt("not_a_participant")
		return "", apperrors.NotAParticipantError()
	}

	plaintext, err := s.open(payload, wrapped, myUserID)
	if err != nil {
		metrics.RecordEnvelopeDecrypt("failed")
		return "", apperrors.DecryptionFailedError(err)
	}

	metrics.RecordEnvelopeDecrypt("ok")
	return plaintext, nil
}

// DecryptRaw parses a stored JSON envelope and decrypts it
func (s *Service) DecryptRaw(ctx context.Context, raw []byte, myUserID string) (string, error) {
	payload, err := domain.ParsePayload(raw)
	if err != nil {
		metrics.RecordEnvelopeDecrypt("malformed")
		return "", err
	}
	return s.DecryptForSelf(ctx, payload, myUserID)
}

// RenderForSelf decrypts for display. Failures become a per-message state so
// one bad message never stops a conversation from rendering.
func (s *Service) RenderForSelf(ctx context.Context, payload *domain.EncryptedMessagePayload, myUserID string) domain.DecryptResult {
	text, err := s.DecryptForSelf(ctx, payload, myUserID)
	if err == nil {
		return domain.DecryptResult{Text: text, State: domain.DecryptStateOK}
	}

	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeNotAParticipant, apperrors.ErrCodeMalformedPayload:
		return domain.DecryptResult{State: domain.DecryptStateNotReadable}
	default:
		logger.Warn("Message could not be decrypted",
			logger.UserID(myUserID), zap.String("code", string(apperrors.CodeOf(err))))
		return domain.DecryptResult{State: domain.DecryptStateFailed}
	}
}

func (s *Service) open(payload *domain.EncryptedMessagePayload, wrapped, myUserID string) (string, error) {
	priv, err := s.keys.LoadLocalPrivateKey(myUserID)
	if err != nil {
		return "", err
	}

	provider := s.keys.Provider()

	wrappedKey, err := crypto.DecodeBase64(wrapped)
	if err != nil {
		return "", err
	}
	aesKey, err := provider.RSADecrypt(priv, wrappedKey)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(aesKey)

	iv, err := crypto.DecodeBase64(payload.IV)
	if err != nil {
		return "", err
	}
	ciphertext, err := crypto.DecodeBase64(payload.EncryptedText)
	if err != nil {
		return "", err
	}

	plaintext, err := provider.AESDecrypt(aesKey, iv, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// resolvePublicKeys fetches every participant key concurrently. The result is
// index-aligned with uids.
func (s *Service) resolvePublicKeys(ctx context.Context, uids []string) ([]*rsa.PublicKey, error) {
	start := time.Now()
	defer func() { metrics.RecordDirectoryLookup(time.Since(start).Seconds()) }()

	pubs := make([]*rsa.PublicKey, len(uids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for i, uid := range uids {
		g.Go(func() error {
			pub, err := s.keys.FetchDirectoryPublicKey(gctx, uid)
			if err != nil {
				if errors.Is(err, apperrors.ErrKeyNotFound) ||
					apperrors.CodeOf(err) == apperrors.ErrCodeInvalidKeyMaterial {
					return apperrors.RecipientKeyMissingError(uid, err)
				}
				return err
			}
			pubs[i] = pub
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pubs, nil
}

// recipients returns participantIDs plus senderID, deduplicated, in first-seen order
func recipients(participantIDs []string, senderID string) ([]string, error) {
	if err := sanitize.ValidateID("sender id", senderID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(participantIDs)+1)
	all := make([]string, 0, len(participantIDs)+1)
	for _, uid := range append(append([]string(nil), participantIDs...), senderID) {
		if err := sanitize.ValidateID("participant id", uid); err != nil {
			return nil, err
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		all = append(all, uid)
	}
	return all, nil
}
