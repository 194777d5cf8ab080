package adaptive

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the AEAD algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// ErrCiphertextTooShort is returned when input is shorter than a nonce.
var ErrCiphertextTooShort = errors.New("adaptive: ciphertext too short")

// Cipher provides authenticated encryption with associated data.
type Cipher interface {
	Type() CipherType
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// New creates the preferred cipher for this platform.
func New(key []byte) (Cipher, error) {
	if hardwareAES() {
		return NewWithType(key, CipherAESGCM)
	}
	return NewWithType(key, CipherChaCha20)
}

// NewWithType creates a cipher of the given type.
func NewWithType(key []byte, t CipherType) (Cipher, error) {
	var (
		aead gocipher.AEAD
		err  error
	)
	switch t {
	case CipherAESGCM:
		aead, err = newAESGCM(key)
	case CipherChaCha20:
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("adaptive: %s needs a %d-byte key", t, chacha20poly1305.KeySize)
		}
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("adaptive: unknown cipher type %q", t)
	}
	if err != nil {
		return nil, err
	}
	return &sealer{typ: t, aead: aead}, nil
}

func newAESGCM(key []byte) (gocipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("adaptive: %s needs a 16, 24 or 32-byte key", CipherAESGCM)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return gocipher.NewGCM(block)
}

// hardwareAES reports whether crypto/aes is accelerated on this GOARCH.
func hardwareAES() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return true
	default:
		return false
	}
}

type sealer struct {
	typ  CipherType
	aead gocipher.AEAD
}

func (s *sealer) Type() CipherType { return s.typ }
func (s *sealer) NonceSize() int   { return s.aead.NonceSize() }
func (s *sealer) Overhead() int    { return s.aead.Overhead() }

// Encrypt seals plaintext under a fresh random nonce.
func (s *sealer) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens the output of Encrypt.
func (s *sealer) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
