// Package domain defines the core domain models for ACI.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Identity: the resolved caller of every storage operation
//   - PermissionRule: a (kind, match) grant evaluated against an Identity
//   - Item: one key's value plus its read and write rules, with the
//     list operations (index, append, recent) used by the wire protocol
//   - Errors: domain error definitions with stable wire codes
package domain
