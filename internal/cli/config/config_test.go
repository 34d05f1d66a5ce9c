package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, Init(path))

	assert.Equal(t, filepath.Dir(path), ConfigDir())
	assert.Equal(t, "http://localhost:8787", GetString(KeyBaseURL))
	assert.Equal(t, 30*time.Second, Timeout())
	assert.Equal(t, 500, GetInt(KeySearchDelay))
}

func TestFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"https://file.example\"\ntimeout = 5\n"), 0o600))

	require.NoError(t, Init(path))
	assert.Equal(t, "https://file.example", GetString(KeyBaseURL))
	assert.Equal(t, 5*time.Second, Timeout())

	t.Setenv("SHOWCASE_API_BASE_URL", "https://env.example")
	require.NoError(t, Init(path))
	assert.Equal(t, "https://env.example", GetString(KeyBaseURL))
}

func TestSavePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Init(path))
	require.NoError(t, Save(KeyBaseURL, "https://saved.example"))

	require.NoError(t, Init(path))
	assert.Equal(t, "https://saved.example", GetString(KeyBaseURL))
}

func TestCredentialsRoundTrip(t *testing.T) {
	require.NoError(t, Init(filepath.Join(t.TempDir(), "config.toml")))

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.False(t, creds.Valid())

	want := &Credentials{Token: "tok", UserID: "u1", Username: "alice", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, SaveCredentials(want))

	got, err := LoadCredentials()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.Valid())

	info, err := os.Stat(filepath.Join(ConfigDir(), "credentials"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, DeleteCredentials())
	require.NoError(t, DeleteCredentials())
}

func TestExpiredCredentials(t *testing.T) {
	c := &Credentials{Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)}
	assert.False(t, c.Valid())
}
