package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAsset(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveAsset(dir, "https://cdn.example.com/static/js/main.js?v=3", "abc123", []byte("console.log(1)"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cdn.example.com", "abc123", "static", "js", "main.js"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(data))

	// existing files are kept
	_, err = SaveAsset(dir, "https://cdn.example.com/static/js/main.js", "abc123", []byte("other"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(data))
}

func TestGetAssetPathErrors(t *testing.T) {
	_, err := GetAssetPath(t.TempDir(), "/static/main.js", "abc")
	assert.Error(t, err)

	_, err = GetAssetPath(t.TempDir(), "https://cdn.example.com/main.js", "")
	assert.Error(t, err)
}

func TestGetAssetPathStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	path, err := GetAssetPath(dir, "https://evil.example.com/../../etc/passwd", "h")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evil.example.com", "h", "etc", "passwd"), path)
}
