package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash returns the hex sha256 of data
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString returns the hex sha256 of s
func HashString(s string) string {
	return Hash([]byte(s))
}

// HashFields hashes fields independent of their order
func HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return HashString(strings.Join(sorted, "|"))
}

// ShortHash returns the first 16 hex characters of a hash, used as an
// entity tag for stored code.
func ShortHash(s string) string {
	full := HashString(s)
	return full[:16]
}
