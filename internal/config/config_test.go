package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 300*time.Millisecond, cfg.SearchQuiet)
	assert.Equal(t, 300*time.Millisecond, cfg.Cart.Quiet)
	assert.Equal(t, 3, cfg.MinQueryLength)
	assert.Equal(t, "cartProducts", cfg.Cart.Key)
	assert.Equal(t, BackendFile, cfg.Cart.Backend)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
catalog_url: https://fakestoreapi.com
search_quiet: 150ms
cart:
  backend: memory
  quiet: 1s
`), 0o644))

	t.Setenv("CART_QUIET", "2s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://fakestoreapi.com", cfg.CatalogURL)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchQuiet)
	assert.Equal(t, BackendMemory, cfg.Cart.Backend)
	assert.Equal(t, 2*time.Second, cfg.Cart.Quiet, "env wins over file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "cartProducts", cfg.Cart.Key, "defaults survive partial files")
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CART_BACKEND", "redis")
		_, err := Load("")
		assert.ErrorContains(t, err, "unknown cart backend")
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("CART_BACKEND", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "database_url")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("SEARCH_QUIET", "soon")
		_, err := Load("")
		assert.ErrorContains(t, err, "SEARCH_QUIET")
	})

	t.Run("zero min query length", func(t *testing.T) {
		t.Setenv("MIN_QUERY_LENGTH", "0")
		_, err := Load("")
		assert.ErrorContains(t, err, "min_query_length")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.ErrorContains(t, err, "read config file")
	})
}
