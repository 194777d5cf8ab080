package disk

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
)

// magic prefixes every sealed file.
var magic = []byte("ACIENC01")

var (
	ErrKeyRequired      = errors.New("disk: file is encrypted but no key is configured")
	ErrDecryptionFailed = errors.New("disk: decryption failed - wrong key or corrupted data")
	ErrSecretTooShort   = errors.New("disk: encryption secret too short (minimum 8 characters)")
)

const (
	minSecretLength = 8
	saltFile        = ".aci-salt"
	saltLength      = 16
	keyLength       = 32
	subkeyInfo      = "aci disk v1"

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// LoadCipher builds the at-rest cipher for a storage root.
//
// A secret of 64 hex digits is used as the master key directly. Anything
// else is treated as a passphrase and stretched with Argon2id using a salt
// kept in <root>/.aci-salt, created on first use. The file key is an HKDF
// subkey of the master key. An empty secret disables encryption.
func LoadCipher(root, secret string, cipherType adaptive.CipherType) (adaptive.Cipher, error) {
	if secret == "" {
		return nil, nil
	}

	master, err := hex.DecodeString(secret)
	if err != nil || len(master) != keyLength {
		if len(secret) < minSecretLength {
			return nil, ErrSecretTooShort
		}
		salt, err := loadSalt(root)
		if err != nil {
			return nil, err
		}
		master = argon2.IDKey([]byte(secret), salt, argon2Time, argon2Memory, argon2Threads, keyLength)
	}

	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(subkeyInfo)), key); err != nil {
		return nil, fmt.Errorf("disk: derive file key: %w", err)
	}
	if cipherType == "" {
		return adaptive.New(key)
	}
	return adaptive.NewWithType(key, cipherType)
}

func loadSalt(root string) ([]byte, error) {
	path := filepath.Join(root, saltFile)
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != saltLength {
			return nil, fmt.Errorf("disk: salt file %s is corrupt", path)
		}
		return salt, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("disk: read salt: %w", err)
	}

	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("disk: generate salt: %w", err)
	}
	if err := writeFileAtomic(path, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// seal encrypts a file body. The name binds the ciphertext to its
// location so files cannot be swapped between keys unnoticed.
func seal(c adaptive.Cipher, name string, plaintext []byte) ([]byte, error) {
	if c == nil {
		return plaintext, nil
	}
	ct, err := c.Encrypt(plaintext, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("disk: encrypt %s: %w", name, err)
	}
	return append(append([]byte{}, magic...), ct...), nil
}

// open reverses seal. Plaintext files are returned unchanged.
func open(c adaptive.Cipher, name string, data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, magic) {
		return data, nil
	}
	if c == nil {
		return nil, ErrKeyRequired
	}
	pt, err := c.Decrypt(data[len(magic):], []byte(name))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pt, nil
}
