package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStringFromFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("  from-file\n"), 0o600))

	t.Setenv("BC_TEST_SECRET", "from-env")
	assert.Equal(t, "from-env", GetStringFromFile("BC_TEST_SECRET", "default"))

	t.Setenv("BC_TEST_SECRET_FILE", secretPath)
	assert.Equal(t, "from-file", GetStringFromFile("BC_TEST_SECRET", "default"))

	t.Setenv("BC_TEST_SECRET_FILE", filepath.Join(dir, "missing"))
	assert.Equal(t, "from-env", GetStringFromFile("BC_TEST_SECRET", "default"))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("BC_INT", "42")
	t.Setenv("BC_BAD_INT", "forty-two")
	t.Setenv("BC_BOOL", "true")
	t.Setenv("BC_DUR", "1500ms")
	t.Setenv("BC_SLICE", "a, b,,c ")

	assert.Equal(t, 42, GetInt("BC_INT", 1))
	assert.Equal(t, 1, GetInt("BC_BAD_INT", 1))
	assert.True(t, GetBool("BC_BOOL", false))
	assert.Equal(t, 1500*time.Millisecond, GetDuration("BC_DUR", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, GetSlice("BC_SLICE", nil))
	assert.Equal(t, []string{"x"}, GetSlice("BC_UNSET", []string{"x"}))
}
