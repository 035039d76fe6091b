package textutil

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Hash returns the hex-encoded sha256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// NormalizedHash hashes text after lower-casing and collapsing whitespace,
// so formatting-only differences produce the same digest.
func NormalizedHash(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return Hash([]byte(normalized))
}
