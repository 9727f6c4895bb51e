package cassandra

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"bharatconnect/internal/database"
	"bharatconnect/internal/domain"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/metrics"
)

const envelopesTable = "message_envelopes"

// EnvelopeSchema creates the envelope table. Rows cluster by TIMEUUID so a
// partition reads newest first.
const EnvelopeSchema = `
	CREATE TABLE IF NOT EXISTS message_envelopes (
		conversation_id text,
		message_id      timeuuid,
		sender_id       text,
		encrypted_text  text,
		iv              text,
		encrypted_keys  map<text, text>,
		sent_at         timestamp,
		PRIMARY KEY ((conversation_id), message_id)
	) WITH CLUSTERING ORDER BY (message_id DESC)
`

// EnvelopeRepository stores encrypted message payloads per conversation.
// Payloads are opaque here; only their shape was checked upstream.
type EnvelopeRepository struct {
	db *database.CassandraDB
}

// NewEnvelopeRepository creates a new EnvelopeRepository
func NewEnvelopeRepository(db *database.CassandraDB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

// EnsureSchema creates the envelope table if it is missing
func (r *EnvelopeRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.ExecWithContext(ctx, EnvelopeSchema); err != nil {
		return fmt.Errorf("failed to create %s table: %w", envelopesTable, err)
	}
	return nil
}

// Save inserts env. A zero MessageID is replaced by a fresh TIMEUUID.
func (r *EnvelopeRepository) Save(ctx context.Context, env *domain.StoredEnvelope) error {
	if env.MessageID == uuid.Nil {
		env.MessageID = uuid.UUID(gocql.UUIDFromTime(env.SentAt))
	}

	query := `
		INSERT INTO message_envelopes (
			conversation_id, message_id, sender_id, encrypted_text, iv, encrypted_keys, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	err := r.db.ExecWithContext(ctx, query,
		env.ConversationID,
		gocql.UUID(env.MessageID),
		env.SenderID,
		env.Payload.EncryptedText,
		env.Payload.IV,
		env.Payload.EncryptedKeys,
		env.SentAt,
	)
	record("insert", start, err)
	if err != nil {
		return apperrors.DatabaseError(fmt.Errorf("failed to save envelope: %w", err))
	}

	return nil
}

// ListByConversation returns up to limit envelopes, newest first. cursor is the
// opaque NextCursor of a previous page, or empty for the first page.
func (r *EnvelopeRepository) ListByConversation(ctx context.Context, conversationID string, limit int, cursor string) (*domain.EnvelopePage, error) {
	pageState, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT conversation_id, message_id, sender_id, encrypted_text, iv, encrypted_keys, sent_at
		FROM message_envelopes
		WHERE conversation_id = ?
	`

	start := time.Now()
	iter := r.db.QueryWithContext(ctx, query, conversationID).
		PageSize(limit).
		PageState(pageState).
		Iter()

	page := &domain.EnvelopePage{Envelopes: make([]*domain.StoredEnvelope, 0, limit)}
	scanner := iter.Scanner()
	for scanner.Next() {
		var (
			env       domain.StoredEnvelope
			messageID gocql.UUID
		)
		if err := scanner.Scan(
			&env.ConversationID,
			&messageID,
			&env.SenderID,
			&env.Payload.EncryptedText,
			&env.Payload.IV,
			&env.Payload.EncryptedKeys,
			&env.SentAt,
		); err != nil {
			record("select", start, err)
			return nil, apperrors.DatabaseError(fmt.Errorf("failed to scan envelope: %w", err))
		}
		env.MessageID = uuid.UUID(messageID)
		page.Envelopes = append(page.Envelopes, &env)
	}
	if err := scanner.Err(); err != nil {
		record("select", start, err)
		return nil, apperrors.DatabaseError(fmt.Errorf("failed to list envelopes: %w", err))
	}
	record("select", start, nil)

	if next := iter.PageState(); len(next) > 0 {
		page.NextCursor = EncodeCursor(next)
		page.HasMore = true
	}

	return page, nil
}

// EncodeCursor turns a driver page state into an opaque cursor
func EncodeCursor(pageState []byte) string {
	return base64.RawURLEncoding.EncodeToString(pageState)
}

// DecodeCursor reverses EncodeCursor. An empty cursor is the first page.
func DecodeCursor(cursor string) ([]byte, error) {
	if cursor == "" {
		return nil, nil
	}
	pageState, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, apperrors.ValidationError("invalid cursor")
	}
	return pageState, nil
}

func record(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gocql.ErrTimeoutNoResponse) {
			metrics.RecordCassandraQueryTimeout(operation, envelopesTable)
			status = "timeout"
		}
	}
	metrics.RecordCassandraQuery(operation, envelopesTable, status, time.Since(start).Seconds())
}
