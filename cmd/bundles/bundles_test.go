package bundles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsh-team/chunkbroker/internal/config"
)

func TestDescribe(t *testing.T) {
	file := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"publicPath":"/","chunks":[{"id":0,"files":["main.js"]},{"id":1}]}`), 0644))

	info := describe("shop", config.BundleConfig{Stats: file})
	assert.Equal(t, "2", info.Chunks)
	assert.NotEqual(t, "-", info.Size)

	info = describe("cdn", config.BundleConfig{Stats: "https://cdn.example.com/stats.json"})
	assert.Equal(t, "remote", info.Size)

	info = describe("gone", config.BundleConfig{Stats: filepath.Join(t.TempDir(), "missing.json")})
	assert.Contains(t, info.Stats, "(not found)")
}
