// Package adaptive wraps the AEAD ciphers used to seal files at rest.
//
// New picks AES-256-GCM on platforms where Go uses hardware AES and
// ChaCha20-Poly1305 elsewhere. Sealed output is nonce || ciphertext || tag.
// A Cipher is safe for concurrent use.
package adaptive
