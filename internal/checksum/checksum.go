// Package checksum computes the content digests used as cache keys and
// as HTTP entity tags.
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

// ETag formats a digest as a strong entity tag.
func ETag(sum string) string {
	if sum == "" {
		return ""
	}
	return `"` + sum + `"`
}

// FromETag extracts the digest from an If-Match style header value. Weak
// tags and bare digests are accepted.
func FromETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}
