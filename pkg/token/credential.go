package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	sha256Prefix = "sha256:"
	argon2Prefix = "$argon2id$"

	argon2Time    = 2
	argon2Memory  = 16 * 1024
	argon2Threads = 2
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// HashSHA256 returns the "sha256:" credential form of token.
func HashSHA256(token string) string {
	h := sha256.Sum256([]byte(token))
	return sha256Prefix + hex.EncodeToString(h[:])
}

// HashArgon2 returns the Argon2id PHC credential form of token.
func HashArgon2(token string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(token), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Match reports whether presented satisfies the stored credential.
func Match(presented, stored string) bool {
	switch {
	case strings.HasPrefix(stored, sha256Prefix):
		return subtle.ConstantTimeCompare([]byte(HashSHA256(presented)), []byte(stored)) == 1
	case strings.HasPrefix(stored, argon2Prefix):
		return matchArgon2(presented, stored)
	default:
		return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
	}
}

// MatchAny reports whether presented satisfies any stored credential.
// Every credential is checked so the time taken does not reveal which one
// matched.
func MatchAny(presented string, stored []string) bool {
	ok := false
	for _, s := range stored {
		if Match(presented, s) {
			ok = true
		}
	}
	return ok
}

func matchArgon2(presented, phc string) bool {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(presented), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
