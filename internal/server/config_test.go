package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9999"
redis:
  addr: "localhost:6379"
  db: 2
workflows:
  - alpha
  - beta
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Workflows)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_DefaultsApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`workflows: [one]`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Addr, cfg.Addr)
}

func TestCatalogOrDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultCatalog(), cfg.CatalogOrDefault())

	cfg.Modules = DefaultCatalog()[:1]
	assert.Len(t, cfg.CatalogOrDefault(), 1)
}
