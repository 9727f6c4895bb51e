package bolt

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/keystore"
	"bharatconnect/internal/repository/memory"
)

func openTemp(t *testing.T) (*LocalRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "device.db")
	repo, err := Open(path)
	require.NoError(t, err)
	return repo, path
}

func TestLocalRepository_GetSetDelete(t *testing.T) {
	repo, _ := openTemp(t)
	defer repo.Close()

	_, found, err := repo.Get("privateKey_alice")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set("privateKey_alice", "MIIE..."))
	require.NoError(t, repo.Set("privateKey_bob", "MIIF..."))

	value, found, err := repo.Get("privateKey_alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "MIIE...", value)

	keys, err := repo.Keys()
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"privateKey_alice", "privateKey_bob"}, keys)

	require.NoError(t, repo.Delete("privateKey_alice"))
	require.NoError(t, repo.Delete("privateKey_alice"))
	_, found, err = repo.Get("privateKey_alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalRepository_PersistsAcrossReopen(t *testing.T) {
	repo, path := openTemp(t)
	require.NoError(t, repo.Set("privateKey_alice", "persisted"))
	require.NoError(t, repo.SetCurrentUser("alice"))
	require.NoError(t, repo.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get("privateKey_alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "persisted", value)

	user, err := reopened.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestLocalRepository_Session(t *testing.T) {
	repo, _ := openTemp(t)
	defer repo.Close()

	_, err := repo.CurrentUser()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, repo.SetCurrentUser("bob"))
	user, err := repo.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "bob", user)

	require.NoError(t, repo.ClearCurrentUser())
	_, err = repo.CurrentUser()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLocalRepository_BacksKeystoreAccessor(t *testing.T) {
	repo, _ := openTemp(t)
	defer repo.Close()

	provider := crypto.NewStdProvider()
	accessor := keystore.NewAccessor(repo, memory.NewDirectory(), provider)

	priv, err := provider.GenerateRSAKeyPair()
	require.NoError(t, err)
	exported, err := provider.ExportPrivateKey(priv)
	require.NoError(t, err)

	require.NoError(t, accessor.SaveLocalPrivateKey("alice", exported))

	loaded, err := accessor.LoadLocalPrivateKey("alice")
	require.NoError(t, err)
	assert.True(t, priv.Equal(loaded))

	raw, found, err := repo.Get(keystore.LocalKeyName("alice"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, exported, raw)
}
