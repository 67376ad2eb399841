package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateXxHash(t *testing.T) {
	// reference value of xxhash64("") with seed 0
	assert.Equal(t, "ef46db3751d8e999", GenerateXxHash(""))
	assert.Len(t, GenerateXxHash("import(`./pages/${name}`)"), 16)
	assert.Equal(t, GenerateXxHash("a"), GenerateXxHash("a"))
	assert.NotEqual(t, GenerateXxHash("a"), GenerateXxHash("b"))
}

func TestGenerateSha256Hash(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		GenerateSha256Hash(nil))
}
