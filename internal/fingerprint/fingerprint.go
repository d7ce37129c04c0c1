package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Text computes the content fingerprint of a text unit.
// Whitespace runs are collapsed before hashing so that reflowed copies of
// the same content map to the same cache entry. The result is stable across
// process restarts: no timestamp or random component.
func Text(s string) string {
	normalized := strings.Join(strings.Fields(s), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// Key builds a composite cache key from a content fingerprint, the operation
// that produced the value and an operation parameter (difficulty level,
// summary length and so on). Keys are used for lookup only, never for
// security.
func Key(fp, operation, param string) string {
	if param == "" {
		return fp + ":" + operation
	}
	return fp + ":" + operation + ":" + param
}
