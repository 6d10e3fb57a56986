package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/errs"
)

func TestLoadCredentials_ParsesTokenAndUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("token: abc123\nuser_id: \"42\"\n"), 0o644))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", creds.Token)
	assert.Equal(t, "42", creds.UserID)
}

func TestLoadCredentials_MissingFileIsConfigurationError(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestLoadCredentials_MissingFieldIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("token: abc123\n"), 0o644))

	_, err := LoadCredentials(path)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
