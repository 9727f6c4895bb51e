package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"bharatconnect/internal/domain"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/metrics"
	"bharatconnect/pkg/resilience"
)

const backupPrefix = "backups"

// BackupRepository keeps encrypted backup packages in a MinIO bucket under
// backups/<user_id>/<name>. Objects are already ciphertext; the bucket never
// sees key material in the clear.
type BackupRepository struct {
	client  *minio.Client
	bucket  string
	breaker *resilience.Breaker
}

// NewBackupRepository creates a new BackupRepository
func NewBackupRepository(client *minio.Client, bucket string, breaker *resilience.Breaker) *BackupRepository {
	if breaker == nil {
		breaker = resilience.New(resilience.DefaultConfig("minio"))
	}
	return &BackupRepository{client: client, bucket: bucket, breaker: breaker}
}

// ObjectKey returns the object key for a user's backup
func ObjectKey(userID, name string) string {
	return path.Join(backupPrefix, userID, name)
}

func userPrefix(userID string) string {
	return backupPrefix + "/" + userID + "/"
}

// Put uploads a package
func (r *BackupRepository) Put(ctx context.Context, userID, name string, data []byte) error {
	err := r.breaker.Execute(ctx, "put", func(ctx context.Context) error {
		_, err := r.client.PutObject(ctx, r.bucket, ObjectKey(userID, name),
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		return err
	})
	if err != nil {
		metrics.RecordObjectStoreOperation("put", "error")
		return apperrors.StorageError(fmt.Errorf("failed to upload backup: %w", err))
	}

	metrics.RecordObjectStoreOperation("put", "ok")
	metrics.RecordObjectStoreBytes("upload", int64(len(data)))
	return nil
}

// Get downloads a package. A missing object is NOT_FOUND.
func (r *BackupRepository) Get(ctx context.Context, userID, name string) ([]byte, error) {
	var data []byte
	err := r.breaker.Execute(ctx, "get", func(ctx context.Context) error {
		obj, err := r.client.GetObject(ctx, r.bucket, ObjectKey(userID, name), minio.GetObjectOptions{})
		if err != nil {
			return classify(err)
		}
		defer obj.Close()

		data, err = io.ReadAll(obj)
		if err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil {
		if isNoSuchKey(err) {
			metrics.RecordObjectStoreOperation("get", "not_found")
			return nil, apperrors.NotFoundError("backup")
		}
		metrics.RecordObjectStoreOperation("get", "error")
		return nil, apperrors.StorageError(fmt.Errorf("failed to download backup: %w", err))
	}

	metrics.RecordObjectStoreOperation("get", "ok")
	metrics.RecordObjectStoreBytes("download", int64(len(data)))
	return data, nil
}

// List returns a user's packages, newest name first
func (r *BackupRepository) List(ctx context.Context, userID string) ([]domain.BackupObject, error) {
	var out []domain.BackupObject
	err := r.breaker.Execute(ctx, "list", func(ctx context.Context) error {
		out = out[:0]
		prefix := userPrefix(userID)
		for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				return obj.Err
			}
			out = append(out, domain.BackupObject{
				Name:         strings.TrimPrefix(obj.Key, prefix),
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		return nil
	})
	if err != nil {
		metrics.RecordObjectStoreOperation("list", "error")
		return nil, apperrors.StorageError(fmt.Errorf("failed to list backups: %w", err))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	metrics.RecordObjectStoreOperation("list", "ok")
	return out, nil
}

func classify(err error) error {
	if isNoSuchKey(err) {
		return resilience.Permanent(err)
	}
	return err
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
