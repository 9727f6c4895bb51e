package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/domain"
	"bharatconnect/internal/keystore"
	"bharatconnect/internal/repository/memory"
	apperrors "bharatconnect/pkg/errors"
)

// MockDirectory wraps the in-memory directory and can fail writes
type MockDirectory struct {
	*memory.Directory
	setErr error
}

func (m *MockDirectory) SetPublicKey(ctx context.Context, userID, publicKey string) error {
	if m.setErr != nil {
		return m.setErr
	}
	return m.Directory.SetPublicKey(ctx, userID, publicKey)
}

// MockVault wraps the in-memory vault store and can fail reads
type MockVault struct {
	*memory.VaultStore
	getErr error
}

func (m *MockVault) GetVault(ctx context.Context, userID string) (*domain.KeyVault, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.VaultStore.GetVault(ctx, userID)
}

type fixture struct {
	svc   *Service
	keys  *keystore.Accessor
	local *memory.LocalStore
	dir   *MockDirectory
	vault *MockVault
}

func newFixture() *fixture {
	local := memory.NewLocalStore()
	dir := &MockDirectory{Directory: memory.NewDirectory()}
	vault := &MockVault{VaultStore: memory.NewVaultStore()}
	keys := keystore.NewAccessor(local, dir, crypto.NewStdProvider())
	return &fixture{
		svc:   NewService(keys, vault),
		keys:  keys,
		local: local,
		dir:   dir,
		vault: vault,
	}
}

func (f *fixture) writes() int {
	return f.local.Writes() + f.dir.Writes() + f.vault.Writes()
}

func TestEnsureLocalKeyMaterial_NoVaultNoKey_Defers(t *testing.T) {
	f := newFixture()

	action, err := f.svc.EnsureLocalKeyMaterial(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleDeferred, action)
	assert.Equal(t, 0, f.writes())
}

func TestEnsureLocalKeyMaterial_VaultNoKey_GeneratesSessionKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.vault.SaveVault(ctx, &domain.KeyVault{UserID: "alice", ActiveKeyID: "old", CreatedAt: created}))

	action, err := f.svc.EnsureLocalKeyMaterial(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleSessionKeyGenerated, action)

	has, _ := f.keys.HasLocalPrivateKey("alice")
	assert.True(t, has)

	priv, err := f.keys.LoadLocalPrivateKey("alice")
	require.NoError(t, err)
	pub, err := f.keys.FetchDirectoryPublicKey(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, pub.Equal(&priv.PublicKey), "published key matches the local private key")

	vault, _ := f.vault.GetVault(ctx, "alice")
	assert.NotEqual(t, "old", vault.ActiveKeyID)
	assert.Equal(t, created, vault.CreatedAt)
}

func TestEnsureLocalKeyMaterial_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.ProvisionInitialKeyPair(ctx, "alice")
	require.NoError(t, err)

	before := f.writes()
	storedKey, _, _ := f.local.Get(keystore.LocalKeyName("alice"))

	for i := 0; i < 2; i++ {
		action, err := f.svc.EnsureLocalKeyMaterial(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.LifecycleNone, action)
	}

	assert.Equal(t, before, f.writes(), "no regeneration and no directory overwrite")
	after, _, _ := f.local.Get(keystore.LocalKeyName("alice"))
	assert.Equal(t, storedKey, after)
}

func TestEnsureLocalKeyMaterial_KeyWithoutVault_IsInconsistentNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p := crypto.NewStdProvider()
	priv, err := p.GenerateRSAKeyPair()
	require.NoError(t, err)
	exported, _ := p.ExportPrivateKey(priv)
	require.NoError(t, f.keys.SaveLocalPrivateKey("alice", exported))
	before := f.writes()

	action, err := f.svc.EnsureLocalKeyMaterial(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleInconsistent, action)
	assert.Equal(t, before, f.writes())
}

func TestEnsureLocalKeyMaterial_PublishFailureRollsBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.vault.SaveVault(ctx, &domain.KeyVault{UserID: "alice"}))
	f.dir.setErr = errors.New("directory unavailable")

	_, err := f.svc.EnsureLocalKeyMaterial(ctx, "alice")

	require.Error(t, err)
	has, _ := f.keys.HasLocalPrivateKey("alice")
	assert.False(t, has, "local key removed so the next login retries")

	f.dir.setErr = nil
	action, err := f.svc.EnsureLocalKeyMaterial(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleSessionKeyGenerated, action)
}

func TestEnsureLocalKeyMaterial_VaultReadError(t *testing.T) {
	f := newFixture()
	f.vault.getErr = errors.New("firestore: deadline exceeded")

	_, err := f.svc.EnsureLocalKeyMaterial(context.Background(), "alice")

	assert.Error(t, err)
	assert.Equal(t, 0, f.writes())
}

func TestEnsureLocalKeyMaterial_EmptyUserID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.EnsureLocalKeyMaterial(context.Background(), "")

	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestProvisionInitialKeyPair(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	vault, err := f.svc.ProvisionInitialKeyPair(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", vault.UserID)
	assert.NotEmpty(t, vault.ActiveKeyID)

	has, _ := f.keys.HasLocalPrivateKey("alice")
	assert.True(t, has)
	_, err = f.keys.FetchDirectoryPublicKey(ctx, "alice")
	assert.NoError(t, err)

	_, err = f.svc.ProvisionInitialKeyPair(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrVaultExists)

	_, err = f.svc.ProvisionInitialKeyPair(ctx, " ")
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestSecondDeviceOverwritesDirectoryKey(t *testing.T) {
	ctx := context.Background()
	dir := &MockDirectory{Directory: memory.NewDirectory()}
	vault := &MockVault{VaultStore: memory.NewVaultStore()}
	provider := crypto.NewStdProvider()

	device1 := NewService(keystore.NewAccessor(memory.NewLocalStore(), dir, provider), vault)
	keys2 := keystore.NewAccessor(memory.NewLocalStore(), dir, provider)
	device2 := NewService(keys2, vault)

	_, err := device1.ProvisionInitialKeyPair(ctx, "alice")
	require.NoError(t, err)
	firstKey, _ := dir.GetPublicKey(ctx, "alice")

	action, err := device2.EnsureLocalKeyMaterial(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleSessionKeyGenerated, action)

	secondKey, _ := dir.GetPublicKey(ctx, "alice")
	assert.NotEqual(t, firstKey, secondKey, "one directory slot per user, replaced by the new device")
}

func TestClearLocalKeyMaterial(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.ProvisionInitialKeyPair(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearLocalKeyMaterial("alice"))

	has, _ := f.keys.HasLocalPrivateKey("alice")
	assert.False(t, has)

	action, err := f.svc.EnsureLocalKeyMaterial(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleSessionKeyGenerated, action)
}
