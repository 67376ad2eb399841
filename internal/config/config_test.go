package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	_, err = os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, "entry-async", cfg.Emit.Mode)
	assert.Equal(t, 4, cfg.Warm.Workers)
	assert.Equal(t, "__LAZY_CHUNKS__", cfg.Emit.IslandID)
	assert.NotNil(t, cfg.Bundles)
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(file, []byte(`
log_level: debug
bundles:
  shop:
    stats: /srv/shop/stats.json
    origin: https://shop.example.com
emit:
  mode: defer
  preload: true
warm:
  workers: 2
`), 0644))

	t.Setenv("CHUNKBROKER_WARM_WORKERS", "9")
	t.Setenv("CHUNKBROKER_EMIT_MODE", "async")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BundleConfig{Stats: "/srv/shop/stats.json", Origin: "https://shop.example.com"}, cfg.Bundles["shop"])
	assert.True(t, cfg.Emit.Preload)
	assert.Equal(t, "async", cfg.Emit.Mode)
	assert.Equal(t, 9, cfg.Warm.Workers)
	assert.Equal(t, 400, cfg.Warm.QueueSize)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(file, []byte("emit: [unclosed"), 0644))

	_, err := Load(viper.New(), file)
	assert.Error(t, err)
}

func TestBundleLookup(t *testing.T) {
	saved := GlobalConfig
	t.Cleanup(func() {
		GlobalConfig = saved
		Bundle, StatsPath, Origin = "", "", ""
	})

	GlobalConfig = Config{Bundles: map[string]BundleConfig{
		"shop": {Stats: "/srv/shop/stats.json", Origin: "https://shop.example.com"},
	}}
	Bundle = "shop"

	assert.Equal(t, "/srv/shop/stats.json", GetBundleStats())
	assert.Equal(t, "https://shop.example.com", GetBundleOrigin())

	StatsPath = "./local.json"
	Origin = "http://localhost:3000"
	assert.Equal(t, "./local.json", GetBundleStats())
	assert.Equal(t, "http://localhost:3000", GetBundleOrigin())
}
