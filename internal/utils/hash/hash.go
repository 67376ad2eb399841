package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// GenerateXxHash returns the 64-bit xxhash of str as 16 hex digits
func GenerateXxHash(str string) string {
	sum := strconv.FormatUint(xxhash.Sum64String(str), 16)
	for len(sum) < 16 {
		sum = "0" + sum
	}
	return sum
}

func GenerateSha256Hash(b []byte) string {
	hasher := sha256.New()
	hasher.Write(b)
	return hex.EncodeToString(hasher.Sum(nil))
}
