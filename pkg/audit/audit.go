package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bharatconnect/pkg/constants"
	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/sanitize"
)

// EventType represents the type of audit event
type EventType string

// Key management events
const (
	EventKeyPublish  EventType = "key_publish"
	EventVaultCreate EventType = "vault_create"
)

// Event represents an audit log entry. It never carries key material or
// ciphertext.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	UserID    string    `json:"user_id,omitempty"`
	EventType EventType `json:"event_type"`
	Resource  string    `json:"resource,omitempty"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"error_code,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder stores audit events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// prepare fills the ID and timestamp and strips control characters
func prepare(event *Event) {
	event.Timestamp = time.Now().UTC()
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	event.Resource = sanitize.StripControlCharacters(event.Resource)
	event.Details = sanitize.StripControlCharacters(event.Details)
}

// DailyKey returns the Redis list holding the events of t's UTC day
func DailyKey(t time.Time) string {
	return fmt.Sprintf("audit:events:%s", t.UTC().Format("2006-01-02"))
}

// RedisRecorder keeps events in one Redis list per day
type RedisRecorder struct {
	redisClient *redis.Client
}

// NewRedisRecorder creates a new RedisRecorder
func NewRedisRecorder(redisClient *redis.Client) *RedisRecorder {
	return &RedisRecorder{redisClient: redisClient}
}

// Record stores event in today's list and refreshes its retention
func (r *RedisRecorder) Record(ctx context.Context, event *Event) error {
	prepare(event)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	key := DailyKey(event.Timestamp)
	pipe := r.redisClient.TxPipeline()
	pipe.LPush(ctx, key, eventJSON)
	pipe.Expire(ctx, key, constants.AuditLogRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store audit event: %w", err)
	}
	return nil
}

// LogRecorder writes events to the application log. Used when no Redis is
// configured.
type LogRecorder struct{}

// Record logs event at info level
func (LogRecorder) Record(_ context.Context, event *Event) error {
	prepare(event)
	logger.Info("Audit event",
		zap.String("event_id", event.EventID.String()),
		zap.String("event_type", string(event.EventType)),
		logger.UserID(event.UserID),
		zap.String("resource", event.Resource),
		zap.Bool("success", event.Success),
		zap.String("error_code", event.ErrorCode),
		zap.String("details", event.Details))
	return nil
}
