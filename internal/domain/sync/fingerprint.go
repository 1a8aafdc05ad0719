package sync

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the content hash used for deduplication: SHA-256 over
// "kind:content". Including the kind keeps identical bytes of different
// kinds (e.g. a text path vs a file reference) from colliding.
func Fingerprint(kind ContentKind, content string) string {
	sum := sha256.Sum256([]byte(string(kind) + ":" + content))
	return hex.EncodeToString(sum[:])
}
