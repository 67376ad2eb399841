package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNames(t *testing.T) {
	file := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(file, []byte("# rendered\npages/Home\n\n  Footer  \n"), 0644))

	names, err := ReadNames([]string{"main"}, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "pages/Home", "Footer"}, names)

	names, err = ReadNames(nil, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = ReadNames(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
