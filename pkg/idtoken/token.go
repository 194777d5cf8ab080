package idtoken

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const signatureSize = ed25519.SignatureSize

// Errors returned by Verify.
var (
	ErrMalformed        = errors.New("idtoken: token is not valid base64url")
	ErrTokenTooShort    = errors.New("idtoken: token too short for signature")
	ErrInvalidSignature = errors.New("idtoken: invalid Ed25519 signature")
	ErrTokenExpired     = errors.New("idtoken: token has expired")
	ErrNotYetValid      = errors.New("idtoken: token issued in the future")
	ErrInvalidKey       = errors.New("idtoken: invalid Ed25519 key")
)

// Claims is the signed payload of an identity token.
type Claims struct {
	// Subject is the provider's stable account identifier.
	Subject string `cbor:"1,keyasint"`

	// Email is the account's email address; it becomes the session
	// principal when present.
	Email string `cbor:"2,keyasint,omitempty"`

	// Issuer names the provider that authenticated the subject.
	Issuer string `cbor:"3,keyasint"`

	// Organization is the hosted domain or tenant of the account.
	Organization string `cbor:"4,keyasint,omitempty"`

	// IssuedAt and ExpiresAt are Unix seconds.
	IssuedAt  int64 `cbor:"5,keyasint"`
	ExpiresAt int64 `cbor:"6,keyasint"`
}

// Principal returns the identity the claims vouch for: Email, or Subject
// when no email is present.
func (c *Claims) Principal() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("idtoken: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("idtoken: CBOR decoder initialization failed: " + err.Error())
	}
}

// Mint signs claims and returns the wire-format token.
func Mint(privateKey ed25519.PrivateKey, claims *Claims) (string, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return "", ErrInvalidKey
	}
	payload, err := encMode.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("idtoken: encoding claims: %w", err)
	}
	signature := ed25519.Sign(privateKey, payload)

	raw := make([]byte, len(payload)+signatureSize)
	copy(raw, payload)
	copy(raw[len(payload):], signature)
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify checks the signature and validity window of token.
func Verify(publicKey ed25519.PublicKey, token string) (*Claims, error) {
	return VerifyAt(publicKey, token, time.Now())
}

// VerifyAt is like Verify with an explicit clock.
func VerifyAt(publicKey ed25519.PublicKey, token string, now time.Time) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrMalformed
	}
	if len(raw) <= signatureSize {
		return nil, ErrTokenTooShort
	}

	split := len(raw) - signatureSize
	payload, signature := raw[:split], raw[split:]
	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var claims Claims
	if err := decMode.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("idtoken: decoding claims: %w", err)
	}
	if now.Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt > now.Unix() {
		return nil, ErrNotYetValid
	}
	return &claims, nil
}

// GenerateKey returns a new Ed25519 key pair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// ParsePublicKey decodes a hex or base64 encoded Ed25519 public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := decodeKey(s)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, ErrInvalidKey
	}
	return ed25519.PublicKey(b), nil
}

// ParsePrivateKey decodes a hex or base64 encoded Ed25519 private key or
// 32-byte seed.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	b, err := decodeKey(s)
	if err != nil {
		return nil, ErrInvalidKey
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, ErrInvalidKey
	}
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// Verifier verifies tokens against one public key.
type Verifier struct {
	publicKey ed25519.PublicKey
	now       func() time.Time
}

// NewVerifier creates a Verifier for publicKey.
func NewVerifier(publicKey ed25519.PublicKey) *Verifier {
	return &Verifier{publicKey: publicKey, now: time.Now}
}

// Verify checks token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return VerifyAt(v.publicKey, token, v.now())
}
