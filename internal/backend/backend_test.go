package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharatconnect/internal/crypto"
	"bharatconnect/pkg/config"
)

func TestBackupOptions_PBKDF2(t *testing.T) {
	opts := BackupOptions(config.BackupConfig{
		KDF:                 config.KDFPBKDF2,
		PBKDF2Iterations:    700000,
		MinPassphraseLength: 12,
	})

	assert.Equal(t, crypto.KDFPBKDF2SHA256, opts.KDF.Algorithm)
	assert.Equal(t, uint32(700000), opts.KDF.Iterations)
	assert.Equal(t, 12, opts.Policy.MinLength)
	require.NoError(t, opts.KDF.Validate())
}

func TestBackupOptions_Argon2id(t *testing.T) {
	opts := BackupOptions(config.BackupConfig{
		KDF:            config.KDFArgon2id,
		Argon2Time:     3,
		Argon2MemoryKB: 64 * 1024,
		Argon2Threads:  4,
	})

	assert.Equal(t, crypto.DefaultArgon2Config(), opts.KDF)
	assert.Equal(t, 8, opts.Policy.MinLength)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Directory: config.DirectoryConfig{Backend: "sqlite"}}

	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	b := &Backends{}
	b.closers = append(b.closers, func() { order = append(order, 1) }, func() { order = append(order, 2) })

	b.Close()
	b.Close()

	assert.Equal(t, []int{2, 1}, order)
}
