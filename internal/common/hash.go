package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashedKey builds a Redis key "prefix:<sha256 hex>" over parts. Parts are
// NUL-separated so ("ab", "c") and ("a", "bc") hash differently.
func HashedKey(prefix string, parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}
