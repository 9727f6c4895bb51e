package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bharatconnect/internal/database"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/metrics"
)

const (
	fieldPublicKey = "public_key"
	fieldUpdatedAt = "updated_at"
)

// DirectoryRepository is the self-hosted public key directory. Each user has
// one hash at directory:publickey:<user_id>; publishing overwrites it.
type DirectoryRepository struct {
	client  *database.RedisClient
	metrics *metrics.Metrics
}

// NewDirectoryRepository creates a new DirectoryRepository. m may be nil.
func NewDirectoryRepository(client *database.RedisClient, m *metrics.Metrics) *DirectoryRepository {
	return &DirectoryRepository{client: client, metrics: m}
}

// PublicKeyKey returns the Redis key holding userID's directory entry
func PublicKeyKey(userID string) string {
	return fmt.Sprintf("directory:publickey:%s", userID)
}

// GetPublicKey returns the published key of userID
func (r *DirectoryRepository) GetPublicKey(ctx context.Context, userID string) (string, error) {
	start := time.Now()
	publicKey, err := r.client.SafeHGet(ctx, PublicKeyKey(userID), fieldPublicKey).Result()
	r.record("hget", start, err)

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.KeyNotFoundError("no public key published for user")
		}
		return "", unavailable(err)
	}
	return publicKey, nil
}

// SetPublicKey publishes publicKey for userID, replacing any previous key
func (r *DirectoryRepository) SetPublicKey(ctx context.Context, userID, publicKey string) error {
	start := time.Now()
	err := r.client.SafeHSet(ctx, PublicKeyKey(userID),
		fieldPublicKey, publicKey,
		fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339),
	).Err()
	r.record("hset", start, err)

	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *DirectoryRepository) record(command string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	if errors.Is(err, redis.Nil) {
		err = nil
	}
	r.metrics.RecordRedisCommand(command, time.Since(start), err)
}

func unavailable(err error) error {
	if errors.Is(err, database.ErrRedisDegraded) {
		return apperrors.ServiceUnavailableError("key directory temporarily unavailable")
	}
	return apperrors.Wrap(apperrors.ErrCodeInternal, "key directory error", err)
}
