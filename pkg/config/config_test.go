package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SelfHostedDefaults(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendSelfHosted)
	t.Setenv("BHARAT_DEVICE_DB", "/tmp/device.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSelfHosted, cfg.Directory.Backend)
	assert.Equal(t, AuthJWT, cfg.Server.AuthProvider)
	assert.Equal(t, KDFPBKDF2, cfg.Backup.KDF)
	assert.Equal(t, 600000, cfg.Backup.PBKDF2Iterations)
	assert.Equal(t, "/tmp/device.db", cfg.Device.DBPath)
	assert.Equal(t, []string{"localhost"}, cfg.Cassandra.Hosts)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 120, cfg.Server.RateLimitRequests)
}

func TestLoad_FirestoreRequiresProject(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendFirestore)
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FIREBASE_PROJECT_ID", "bharatconnect-dev")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bharatconnect-dev", cfg.Firebase.ProjectID)
}

func TestValidate_RejectsWeakKDF(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendSelfHosted)
	t.Setenv("BACKUP_PBKDF2_ITERATIONS", "1000")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_ProductionJWTSecret(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", BackendSelfHosted)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	_, err = Load()
	assert.NoError(t, err)
}
