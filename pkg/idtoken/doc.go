// Package idtoken mints and verifies signed identity tokens.
//
// A token is the CBOR encoding of Claims (Core Deterministic Encoding)
// followed by a 64-byte Ed25519 signature over those bytes. On the wire
// it travels as unpadded base64url text.
//
// The server's federated authentication path uses Verifier as its
// identity provider: it trusts whoever holds the private key to have
// authenticated the subject, then applies its own issuer and organization
// checks on the returned claims.
package idtoken
