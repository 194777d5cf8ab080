package domain

import "strings"

// IdentityKind classifies how a session proved who it is.
type IdentityKind string

const (
	// KindAnonymous is an unauthenticated session.
	KindAnonymous IdentityKind = "anonymous"

	// KindService is a session bound through static id/token credentials.
	KindService IdentityKind = "service"

	// KindFederated is a session bound through an identity-provider token.
	KindFederated IdentityKind = "federated"

	// KindBackend is the in-process system identity. It never comes from
	// the wire.
	KindBackend IdentityKind = "backend"
)

// Rule match values with special meaning.
const (
	// MatchAny matches every principal of the rule's kind.
	MatchAny = "any"

	// MatchAuthed matches every non-anonymous identity regardless of kind.
	MatchAuthed = "authed"
)

// Identity is the resolved caller of a storage operation.
type Identity struct {
	Kind      IdentityKind `json:"kind"`
	Principal string       `json:"principal"`
}

var (
	// NotAuthed is the identity every session holds until it authenticates.
	NotAuthed = Identity{Kind: KindAnonymous}

	// Backend is the fully privileged system identity.
	Backend = Identity{Kind: KindBackend, Principal: "backend"}
)

// IsBackend reports whether the identity bypasses permission checks.
func (i Identity) IsBackend() bool {
	return i.Kind == KindBackend
}

// IsAnonymous reports whether the identity is unauthenticated.
func (i Identity) IsAnonymous() bool {
	return i.Kind == KindAnonymous || i.Kind == ""
}

// String renders the identity as kind:principal.
func (i Identity) String() string {
	if i.IsAnonymous() {
		return string(KindAnonymous)
	}
	return string(i.Kind) + ":" + i.Principal
}

// ParseIdentityKind maps a kind tag to an IdentityKind. Legacy tags from
// older item files (a_user, g_user) are accepted.
func ParseIdentityKind(s string) (IdentityKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anonymous", "notauthed":
		return KindAnonymous, true
	case "service", "a_user":
		return KindService, true
	case "federated", "g_user":
		return KindFederated, true
	case "backend":
		return KindBackend, true
	default:
		return "", false
	}
}

// PermissionRule grants an access kind to identities of Kind whose
// principal equals Match, or to any principal of Kind when Match is "any".
// Match "authed" grants every non-anonymous identity.
type PermissionRule struct {
	Kind  IdentityKind `json:"kind"`
	Match string       `json:"match"`
}

// Matches reports whether the rule admits the identity.
//
// "authed" is compared as a literal match value, so a principal literally
// named "authed" and the any-authenticated meaning are not distinguished.
func (r PermissionRule) Matches(id Identity) bool {
	if id.IsBackend() {
		return true
	}
	if id.IsAnonymous() {
		return r.Kind == KindAnonymous && r.Match == MatchAny
	}
	if r.Match == MatchAuthed {
		return true
	}
	if r.Kind != id.Kind {
		return false
	}
	return r.Match == id.Principal || r.Match == MatchAny
}

// Access is the permission kind being checked.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// Allowed evaluates a rule set for an identity. The backend identity is
// always allowed; otherwise at least one rule must match.
func Allowed(rules []PermissionRule, id Identity) bool {
	if id.IsBackend() {
		return true
	}
	for _, r := range rules {
		if r.Matches(id) {
			return true
		}
	}
	return false
}
