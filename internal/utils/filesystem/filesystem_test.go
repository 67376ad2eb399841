package filesystem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDomain(t *testing.T) {
	domain, err := ExtractDomain("https://cdn.example.com:8443/static/main.js")
	require.NoError(t, err)
	assert.Equal(t, "cdn.example.com_8443", domain)

	domain, err = ExtractDomain("https://cdn.example.com:443/static/main.js")
	require.NoError(t, err)
	assert.Equal(t, "cdn.example.com", domain)

	_, err = ExtractDomain("")
	assert.Error(t, err)
	_, err = ExtractDomain("/relative/path.js")
	assert.Error(t, err)
}

func TestCleanSourcePath(t *testing.T) {
	assert.Equal(t, filepath.Join("static", "js", "main.js"), CleanSourcePath("/static/js/main.js"))
	assert.Equal(t, filepath.Join("etc", "passwd"), CleanSourcePath("/../../etc/passwd"))
	assert.Equal(t, "unknown.js", CleanSourcePath("/"))
	assert.Equal(t, "a_b.js", CleanSourcePath("a:b.js"))
}
