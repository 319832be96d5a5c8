package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, 100, cfg.Search.DefaultPageSize)
	assert.Equal(t, 1000, cfg.Search.MaxPageSize)
	assert.Equal(t, 1000, cfg.Search.ChunkSize)
	assert.Equal(t, "citesearch", cfg.Search.CachePrefix)
	assert.Equal(t, 40, cfg.Lexicon.MaxContextCitations)
	assert.Equal(t, 3, cfg.Lexicon.NRetries)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Anthropic.Model)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("database:\n  dsn: postgres://localhost/atlomy\nsearch:\n  default_page_size: 50\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/atlomy", cfg.Database.DSN)
	assert.Equal(t, 50, cfg.Search.DefaultPageSize)
	// untouched fields still default
	assert.Equal(t, 1000, cfg.Search.ChunkSize)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Search.DefaultPageSize)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dsn: postgres://file/db\n"), 0o600))

	t.Setenv("ATLOMY_DATABASE_DSN", "postgres://env/db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
}
