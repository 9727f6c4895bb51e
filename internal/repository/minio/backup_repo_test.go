package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "backups/alice/backup-1.json", ObjectKey("alice", "backup-1.json"))
	assert.Equal(t, "backups/alice/", userPrefix("alice"))
}
