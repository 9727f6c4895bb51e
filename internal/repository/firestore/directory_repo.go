// Package firestore stores the public key directory and key vaults in Cloud
// Firestore, the layout used by the web client.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "bharatconnect/pkg/errors"
)

const (
	usersCollection = "users"
	fieldPublicKey  = "publicKey"
	fieldKeyUpdated = "publicKeyUpdatedAt"
)

// DirectoryRepository reads and writes users/{uid}.publicKey. Other profile
// fields of the user document are left alone.
type DirectoryRepository struct {
	client *firestore.Client
}

// NewDirectoryRepository creates a new DirectoryRepository
func NewDirectoryRepository(client *firestore.Client) *DirectoryRepository {
	return &DirectoryRepository{client: client}
}

// GetPublicKey returns the published key of userID
func (r *DirectoryRepository) GetPublicKey(ctx context.Context, userID string) (string, error) {
	snap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", apperrors.KeyNotFoundError("no public key published for user")
		}
		return "", backendError("failed to read user document", err)
	}

	return publicKeyFromData(snap.Data())
}

// SetPublicKey publishes publicKey for userID, merging into the user document
func (r *DirectoryRepository) SetPublicKey(ctx context.Context, userID, publicKey string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{
		fieldPublicKey:  publicKey,
		fieldKeyUpdated: firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return backendError("failed to publish public key", err)
	}
	return nil
}

// publicKeyFromData extracts publicKey from a user document. A profile with
// no key, or a key of the wrong type, counts as not published.
func publicKeyFromData(data map[string]interface{}) (string, error) {
	raw, ok := data[fieldPublicKey]
	if !ok {
		return "", apperrors.KeyNotFoundError("no public key published for user")
	}
	publicKey, ok := raw.(string)
	if !ok || publicKey == "" {
		return "", apperrors.KeyNotFoundError("no public key published for user")
	}
	return publicKey, nil
}

func backendError(msg string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return apperrors.ServiceUnavailableError(fmt.Sprintf("%s: firestore unavailable", msg))
	case codes.PermissionDenied, codes.Unauthenticated:
		return apperrors.ForbiddenError(msg)
	}
	return apperrors.DatabaseError(fmt.Errorf("%s: %w", msg, err))
}
