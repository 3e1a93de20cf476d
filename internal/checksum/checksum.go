package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumFields digests a sequence of fields with a separator byte so that
// ("ab","c") and ("a","bc") produce different sums. Used to detect
// material changes between note snapshots.
func SumFields(fields ...string) string {
	return Sum([]byte(strings.Join(fields, "\x1f")))
}
