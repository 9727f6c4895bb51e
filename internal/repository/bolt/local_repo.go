// Package bolt implements device-local storage on a bbolt file.
package bolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	keysBucket    = "local_keys"
	sessionBucket = "session"

	currentUserKey = "current_user"
)

// ErrNoSession is returned when no account is signed in on this device
var ErrNoSession = errors.New("no signed-in user on this device")

// LocalRepository is a device store backed by a single bbolt file. It holds
// private keys by name and the signed-in account.
type LocalRepository struct {
	db *bolt.DB
}

// Open opens or creates the device database at path. The parent directory is
// created with owner-only permissions.
func Open(path string) (*LocalRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create device directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open device database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{keysBucket, sessionBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize device database: %w", err)
	}

	return &LocalRepository{db: db}, nil
}

// Close closes the database file
func (r *LocalRepository) Close() error {
	return r.db.Close()
}

// Get returns the value stored under key
func (r *LocalRepository) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(keysBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		// raw is only valid inside the transaction
		value = string(raw)
		found = true
		return nil
	})
	return value, found, err
}

// Set stores value under key
func (r *LocalRepository) Set(key, value string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysBucket)).Put([]byte(key), []byte(value))
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (r *LocalRepository) Delete(key string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysBucket)).Delete([]byte(key))
	})
}

// Keys lists stored entry names
func (r *LocalRepository) Keys() ([]string, error) {
	var names []string
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(keysBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// SetCurrentUser records the signed-in account
func (r *LocalRepository) SetCurrentUser(userID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(currentUserKey), []byte(userID))
	})
}

// CurrentUser returns the signed-in account or ErrNoSession
func (r *LocalRepository) CurrentUser() (string, error) {
	var userID string
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(sessionBucket)).Get([]byte(currentUserKey))
		if raw == nil {
			return ErrNoSession
		}
		userID = string(raw)
		return nil
	})
	return userID, err
}

// ClearCurrentUser signs the device out
func (r *LocalRepository) ClearCurrentUser() error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Delete([]byte(currentUserKey))
	})
}
