package keystore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/domain"
	"bharatconnect/internal/repository/memory"
	apperrors "bharatconnect/pkg/errors"
)

var (
	pairOnce sync.Once
	pair     domain.ExportedKeyPair
)

func testPair(t *testing.T) domain.ExportedKeyPair {
	t.Helper()
	pairOnce.Do(func() {
		p := crypto.NewStdProvider()
		priv, err := p.GenerateRSAKeyPair()
		if err != nil {
			panic(err)
		}
		pair.PublicKey, _ = p.ExportPublicKey(&priv.PublicKey)
		pair.PrivateKey, _ = p.ExportPrivateKey(priv)
	})
	return pair
}

// failingStore fails every operation
type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk error") }
func (failingStore) Set(string, string) error         { return errors.New("disk error") }
func (failingStore) Delete(string) error              { return errors.New("disk error") }

func newAccessor() (*Accessor, *memory.LocalStore, *memory.Directory) {
	local := memory.NewLocalStore()
	dir := memory.NewDirectory()
	return NewAccessor(local, dir, crypto.NewStdProvider()), local, dir
}

func TestLocalKeyName(t *testing.T) {
	assert.Equal(t, "privateKey_uid-1", LocalKeyName("uid-1"))
}

func TestLocalPrivateKey_Lifecycle(t *testing.T) {
	a, local, _ := newAccessor()
	kp := testPair(t)

	has, err := a.HasLocalPrivateKey("alice")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = a.LoadLocalPrivateKey("alice")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	require.NoError(t, a.SaveLocalPrivateKey("alice", kp.PrivateKey))

	stored, ok, _ := local.Get("privateKey_alice")
	assert.True(t, ok)
	assert.Equal(t, kp.PrivateKey, stored)

	has, err = a.HasLocalPrivateKey("alice")
	require.NoError(t, err)
	assert.True(t, has)

	priv, err := a.LoadLocalPrivateKey("alice")
	require.NoError(t, err)
	assert.Equal(t, crypto.RSAKeyBits, priv.N.BitLen())

	has, _ = a.HasLocalPrivateKey("bob")
	assert.False(t, has, "keys are namespaced per user")

	require.NoError(t, a.DeleteLocalPrivateKey("alice"))
	_, err = a.LoadLocalPrivateKey("alice")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

func TestSaveLocalPrivateKey_RejectsGarbage(t *testing.T) {
	a, local, _ := newAccessor()

	err := a.SaveLocalPrivateKey("alice", "bm90IGEga2V5")
	assert.Equal(t, apperrors.ErrCodeInvalidKeyMaterial, apperrors.CodeOf(err))
	assert.Equal(t, 0, local.Writes())
}

func TestLoadLocalPrivateKey_CorruptEntry(t *testing.T) {
	a, local, _ := newAccessor()
	require.NoError(t, local.Set(LocalKeyName("alice"), "Y29ycnVwdA=="))

	_, err := a.LoadLocalPrivateKey("alice")
	assert.Equal(t, apperrors.ErrCodeInvalidKeyMaterial, apperrors.CodeOf(err))
}

func TestEmptyUserIDRejected(t *testing.T) {
	a, _, _ := newAccessor()

	_, err := a.HasLocalPrivateKey(" ")
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
	_, err = a.FetchDirectoryPublicKey(context.Background(), "")
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestMalformedUserIDRejected(t *testing.T) {
	a, local, dir := newAccessor()
	ctx := context.Background()

	for _, uid := range []string{"users/alice", "..", "__meta__", "al ice"} {
		err := a.PublishDirectoryPublicKey(ctx, uid, testPair(t).PublicKey)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err), uid)
		err = a.SaveLocalPrivateKey(uid, testPair(t).PrivateKey)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err), uid)
	}

	assert.Zero(t, dir.Writes())
	assert.Zero(t, local.Writes())
}

func TestStorageErrorsPropagate(t *testing.T) {
	a := NewAccessor(failingStore{}, memory.NewDirectory(), crypto.NewStdProvider())

	_, err := a.HasLocalPrivateKey("alice")
	assert.Equal(t, apperrors.ErrCodeStorage, apperrors.CodeOf(err))

	err = a.SaveLocalPrivateKey("alice", testPair(t).PrivateKey)
	assert.Equal(t, apperrors.ErrCodeStorage, apperrors.CodeOf(err))
}

func TestDirectoryPublicKey(t *testing.T) {
	a, _, dir := newAccessor()
	ctx := context.Background()
	kp := testPair(t)

	_, err := a.FetchDirectoryPublicKey(ctx, "bob")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	require.NoError(t, a.PublishDirectoryPublicKey(ctx, "bob", kp.PublicKey))
	assert.Equal(t, 1, dir.Writes())

	pub, err := a.FetchDirectoryPublicKey(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, crypto.RSAPublicExponent, pub.E)

	err = a.PublishDirectoryPublicKey(ctx, "bob", "bm90IGEga2V5")
	assert.Equal(t, apperrors.ErrCodeInvalidKeyMaterial, apperrors.CodeOf(err))
	assert.Equal(t, 1, dir.Writes())
}

func TestFetchDirectoryPublicKey_UnusableRecord(t *testing.T) {
	a, _, dir := newAccessor()
	ctx := context.Background()
	require.NoError(t, dir.SetPublicKey(ctx, "bob", "Z2FyYmFnZQ=="))

	_, err := a.FetchDirectoryPublicKey(ctx, "bob")
	assert.Equal(t, apperrors.ErrCodeInvalidKeyMaterial, apperrors.CodeOf(err))
}
