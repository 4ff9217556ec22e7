// Package fingerprint computes the content hash used as the cache key for
// one source document.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns a 128-bit content fingerprint of data as a lowercase hex
// string. The hash is a function of the bytes only; filename and MIME type
// never participate. SHA-256 truncated to 16 bytes keeps keys short while
// staying collision-resistant for cache purposes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
