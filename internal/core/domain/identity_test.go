package domain

import "testing"

func TestPermissionRule_Matches(t *testing.T) {
	alice := Identity{Kind: KindFederated, Principal: "alice@example.com"}
	svc := Identity{Kind: KindService, Principal: "ingest"}

	tests := []struct {
		name string
		rule PermissionRule
		id   Identity
		want bool
	}{
		{"exact principal", PermissionRule{KindFederated, "alice@example.com"}, alice, true},
		{"other principal", PermissionRule{KindFederated, "bob@example.com"}, alice, false},
		{"kind mismatch", PermissionRule{KindService, "alice@example.com"}, alice, false},
		{"any of kind", PermissionRule{KindService, MatchAny}, svc, true},
		{"any of other kind", PermissionRule{KindService, MatchAny}, alice, false},
		{"authed any kind", PermissionRule{KindService, MatchAuthed}, alice, true},
		{"anonymous needs anonymous any", PermissionRule{KindAnonymous, MatchAny}, NotAuthed, true},
		{"anonymous rejected by service any", PermissionRule{KindService, MatchAny}, NotAuthed, false},
		{"anonymous rejected by authed", PermissionRule{KindService, MatchAuthed}, NotAuthed, false},
		{"backend always", PermissionRule{KindService, "nobody"}, Backend, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.id); got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	if !Allowed(nil, Backend) {
		t.Error("backend must bypass an empty rule set")
	}
	if Allowed(nil, Identity{Kind: KindService, Principal: "x"}) {
		t.Error("empty rule set must deny")
	}
	rules := []PermissionRule{{KindService, "a"}, {KindFederated, MatchAny}}
	if !Allowed(rules, Identity{Kind: KindFederated, Principal: "z"}) {
		t.Error("second rule should match")
	}
}

func TestParseIdentityKind(t *testing.T) {
	tests := map[string]IdentityKind{
		"a_user":    KindService,
		"g_user":    KindFederated,
		"Service":   KindService,
		"anonymous": KindAnonymous,
	}
	for in, want := range tests {
		got, ok := ParseIdentityKind(in)
		if !ok || got != want {
			t.Errorf("ParseIdentityKind(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseIdentityKind("martian"); ok {
		t.Error("unknown kind should not parse")
	}
}
