// Package token generates static access tokens and checks presented
// tokens against stored credentials.
//
// A stored credential is one of:
//
//   - the token itself (legacy plaintext tables)
//   - "sha256:" followed by the hex SHA-256 of the token
//   - an Argon2id PHC string: $argon2id$v=19$m=<KiB>,t=<n>,p=<n>$<salt>$<hash>
//
// All comparisons are constant-time.
package token
