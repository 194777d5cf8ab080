// Package service provides domain services for ACI.
//
// AuthService establishes a session's identity. Two flows exist and a
// session uses one of them:
//
//   - Static: an (id, token) pair checked against the a_users table in the
//     reserved config database. Success binds {service, id}.
//   - Federated: an identity token checked by a FederatedVerifier, then
//     against the configured issuer list and organization allow-list.
//     Success binds {federated, email-or-subject}.
//
// A failed attempt returns an error and leaves the caller's identity as
// it was.
package service
