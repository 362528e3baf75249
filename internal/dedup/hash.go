package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash derives the stable identity of a mention from its URL and
// title: both are trimmed and lowercased, joined with "|", and hashed with
// SHA-256. Two events differing only in whitespace or letter case collide on
// purpose.
func ContentHash(url, title string) string {
	normalized := strings.ToLower(strings.TrimSpace(url)) + "|" + strings.ToLower(strings.TrimSpace(title))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
