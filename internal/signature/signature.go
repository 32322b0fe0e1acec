// Package signature implements the legacy request-signing scheme carried
// over for caller compatibility. The digest is order-insensitive by
// construction (the concatenation is character-sorted before hashing), so it
// must not be treated as a security control.
package signature

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Generate returns the hex MD5 of the character-sorted concatenation of
// keyCode, signDate and trnID.
func Generate(keyCode, signDate, trnID string) string {
	return digest(keyCode + signDate + trnID)
}

// GenerateShort is the two-field variant used by the query endpoints.
func GenerateShort(keyCode, signDate string) string {
	return digest(keyCode + signDate)
}

// Verify compares a caller-supplied signature in constant time.
func Verify(sign, keyCode, signDate, trnID string) bool {
	expected := Generate(keyCode, signDate, trnID)
	return subtle.ConstantTimeCompare([]byte(sign), []byte(expected)) == 1
}

func digest(concatenated string) string {
	chars := strings.Split(concatenated, "")
	sort.Strings(chars)
	sum := md5.Sum([]byte(strings.Join(chars, "")))
	return hex.EncodeToString(sum[:])
}
