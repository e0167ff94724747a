package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/config"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wevotectl.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApplyConfigFileOverridesEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/wevote")
	t.Setenv("GOOGLE_CIVIC_API_KEY", "")
	t.Setenv("WEVOTE_CIVIC_RPS", "")

	path := writeConfigFile(t, `
[database]
url = postgres://file/wevote

[civic]
api_key = civic-file-key
rps = 2.5

[import]
glob = /data/vip/*.xml
state_code = OR
`)
	fs, err := applyConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/vip/*.xml", fs.ImportGlob)
	assert.Equal(t, "OR", fs.StateCode)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/wevote", cfg.DatabaseURL)
	assert.Equal(t, "civic-file-key", cfg.GoogleCivicAPIKey)
	assert.InDelta(t, 2.5, cfg.CivicRPS, 1e-9)
}

func TestApplyConfigFileLeavesMissingKeysAlone(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/wevote")
	t.Setenv("WEVOTE_CIVIC_TIMEOUT", "")
	path := writeConfigFile(t, "[civic]\ntimeout = 5s\n")

	fs, err := applyConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, fs.ImportGlob)
	assert.Equal(t, "postgres://env/wevote", os.Getenv("DATABASE_URL"))
	assert.Equal(t, "5s", os.Getenv("WEVOTE_CIVIC_TIMEOUT"))
}

func TestApplyConfigFileWithoutPath(t *testing.T) {
	fs, err := applyConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, fileSettings{}, fs)
}

func TestApplyConfigFileMissing(t *testing.T) {
	_, err := applyConfigFile(filepath.Join(t.TempDir(), "absent.ini"))
	assert.Error(t, err)
}
