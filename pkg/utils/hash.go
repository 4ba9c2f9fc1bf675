package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashString generates a SHA1 hash of a string
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// HashParts hashes several strings so that ("ab","c") and ("a","bc") differ.
func HashParts(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
