package token

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	// DefaultLength is the default token length in bytes.
	DefaultLength = 32

	// Prefix marks generated tokens so the logger can mask them.
	Prefix = "acit_"
)

// Generate returns Prefix followed by DefaultLength random bytes,
// base64url encoded without padding.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns a prefixed random token of length bytes.
func GenerateWithLength(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}
