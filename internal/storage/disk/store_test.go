package disk

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
)

func newTestStore(t *testing.T, cipher adaptive.Cipher) *Store {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.Cipher = cipher
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func writeDatabase(s *Store, db string, items []*domain.Item) error {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		if err := s.WriteItem(db, it); err != nil {
			return err
		}
		keys = append(keys, it.Key)
	}
	return s.WriteManifest(Manifest{Name: db, Keys: keys})
}

func sameItem(t *testing.T, got, want *domain.Item) {
	t.Helper()
	if got.Key != want.Key || got.Owner != want.Owner || got.Type != want.Type {
		t.Errorf("item header = (%q, %q, %q), want (%q, %q, %q)",
			got.Key, got.Owner, got.Type, want.Key, want.Owner, want.Type)
	}
	if !reflect.DeepEqual(got.Value, want.Value) {
		t.Errorf("Value = %#v, want %#v", got.Value, want.Value)
	}
	if !reflect.DeepEqual(got.ReadRules, want.ReadRules) {
		t.Errorf("ReadRules = %v, want %v", got.ReadRules, want.ReadRules)
	}
	if !reflect.DeepEqual(got.WriteRules, want.WriteRules) {
		t.Errorf("WriteRules = %v, want %v", got.WriteRules, want.WriteRules)
	}
}

func TestStore_DatabaseRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	owner := domain.Identity{Kind: domain.KindService, Principal: "svc"}

	scalar := domain.NewItem("greeting", "hello", owner)
	list := domain.NewItem("log", []any{1.0, "two", map[string]any{"n": 3.0}}, owner)
	list.ReadRules = append(list.ReadRules, domain.PermissionRule{Kind: domain.KindFederated, Match: domain.MatchAuthed})
	odd := domain.NewItem("a/b c", 42.0, domain.Backend)

	if err := writeDatabase(s, "main", []*domain.Item{scalar, list, odd}); err != nil {
		t.Fatalf("writeDatabase: %v", err)
	}

	items, err := s.ReadDatabase("main")
	if err != nil {
		t.Fatalf("ReadDatabase: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	for _, want := range []*domain.Item{scalar, list, odd} {
		got, ok := items[want.Key]
		if !ok {
			t.Errorf("missing item %q", want.Key)
			continue
		}
		sameItem(t, got, want)
	}
}

func TestStore_ManifestMissing(t *testing.T) {
	s := newTestStore(t, nil)
	_, err := s.ReadDatabase("nope")
	if !errors.Is(err, domain.ErrDatabaseNotFound) {
		t.Errorf("err = %v, want ErrDatabaseNotFound", err)
	}
}

func TestStore_UnreadableItemGetsDefaults(t *testing.T) {
	s := newTestStore(t, nil)
	if err := s.WriteManifest(Manifest{Name: "db", Keys: []string{"ghost", "broken"}}); err != nil {
		t.Fatal(err)
	}
	writeRaw(t, s.itemPath("db", "broken"), "{not json")

	items, err := s.ReadDatabase("db")
	if err != nil {
		t.Fatalf("ReadDatabase: %v", err)
	}
	for _, key := range []string{"ghost", "broken"} {
		it := items[key]
		if it == nil {
			t.Fatalf("item %q not loaded", key)
		}
		if it.Value != "" || it.Owner != "" || len(it.ReadRules) != 0 || it.Type != domain.DefaultItemType {
			t.Errorf("item %q = %+v, want default state", key, it)
		}
	}
}

func TestStore_LegacyListItem(t *testing.T) {
	s := newTestStore(t, nil)
	writeRaw(t, s.manifestPath("old"), `["old", ["k"]]`)
	writeRaw(t, s.itemPath("old", "k"),
		`["k", [1, 2, 3], "self", {"read": [["a_user", "any"]], "write": [["g_user", "me@example.com"]]}, ["child"]]`)

	items, err := s.ReadDatabase("old")
	if err != nil {
		t.Fatalf("ReadDatabase: %v", err)
	}
	it := items["k"]
	want := &domain.Item{
		Key:        "k",
		Value:      []any{1.0, 2.0, 3.0},
		Owner:      "self",
		ReadRules:  []domain.PermissionRule{{Kind: domain.KindService, Match: "any"}},
		WriteRules: []domain.PermissionRule{{Kind: domain.KindFederated, Match: "me@example.com"}},
		Type:       domain.DefaultItemType,
	}
	sameItem(t, it, want)
	if !reflect.DeepEqual(it.Subs, []string{"child"}) {
		t.Errorf("Subs = %v", it.Subs)
	}
	if it.Version != domain.SchemaVersion {
		t.Errorf("Version = %q", it.Version)
	}

	// The file is upgraded in memory only.
	raw, _ := os.ReadFile(s.itemPath("old", "k"))
	if !strings.HasPrefix(string(raw), "[") {
		t.Error("legacy file was rewritten on read")
	}
}

func TestStore_LegacyUnescapedNames(t *testing.T) {
	s := newTestStore(t, nil)
	dir := filepath.Join(s.Root(), "databases", "game room")
	writeRaw(t, filepath.Join(dir, "game room.database"), `{"dbKey": "game room", "keys": ["high score", "50%"]}`)
	writeRaw(t, filepath.Join(dir, "high score.item"),
		`{"key": "high score", "value": 9001, "owner": "ann", "permissions": {"read": [["a_user", "any"]], "write": []}, "subs": [], "type": "int"}`)
	writeRaw(t, filepath.Join(dir, "50%.item"), `["50%", "half", "ann", {"read": [], "write": []}, []]`)

	items, err := s.ReadDatabase("game room")
	if err != nil {
		t.Fatalf("ReadDatabase: %v", err)
	}
	sameItem(t, items["high score"], &domain.Item{
		Key:       "high score",
		Value:     9001.0,
		Owner:     "ann",
		ReadRules: []domain.PermissionRule{{Kind: domain.KindService, Match: "any"}},
		Type:      "int",
	})
	if v := items["50%"].Value; v != "half" {
		t.Errorf("50%% value = %v, want half", v)
	}

	// After a write the escaped file takes precedence.
	it := items["high score"]
	it.Value = 9002.0
	if err := s.WriteItem("game room", it); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadItem("game room", "high score")
	if err != nil || got.Value != 9002.0 {
		t.Errorf("ReadItem = %v, %v", got, err)
	}
}

func TestStore_LegacyPathRejectsSeparators(t *testing.T) {
	s := newTestStore(t, nil)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if p := s.legacyPath("main", name); p != "" {
			t.Errorf("legacyPath(main, %q) = %q, want empty", name, p)
		}
	}
	if p := s.legacyPath("main", "high score.item"); p != filepath.Join(s.Root(), "databases", "main", "high score.item") {
		t.Errorf("legacyPath = %q", p)
	}
}

func TestStore_LegacyTaggedItem(t *testing.T) {
	s := newTestStore(t, nil)
	writeRaw(t, s.manifestPath("cfg"), `{"dbKey": "cfg", "keys": ["port"], "ver": "2020.07.01.1"}`)
	writeRaw(t, s.itemPath("cfg", "port"),
		`{"key": "port", "value": 8765, "owner": null, "permissions": null, "subs": null, "type": null}`)

	items, err := s.ReadDatabase("cfg")
	if err != nil {
		t.Fatalf("ReadDatabase: %v", err)
	}
	it := items["port"]
	if it.Value != 8765.0 || it.Owner != "" || it.Type != domain.DefaultItemType {
		t.Errorf("item = %+v", it)
	}
	if len(it.ReadRules) != 0 || len(it.WriteRules) != 0 {
		t.Errorf("rules = %v / %v, want empty", it.ReadRules, it.WriteRules)
	}
}

func TestStore_Encrypted(t *testing.T) {
	root := t.TempDir()
	c, err := LoadCipher(root, "correct horse battery staple", "")
	if err != nil {
		t.Fatalf("LoadCipher: %v", err)
	}
	cfg := DefaultConfig(root)
	cfg.Cipher = c
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	it := domain.NewItem("secret", "value", domain.Backend)
	if err := writeDatabase(s, "vault", []*domain.Item{it}); err != nil {
		t.Fatalf("writeDatabase: %v", err)
	}

	raw, err := os.ReadFile(s.itemPath("vault", "secret"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "value") {
		t.Error("item file holds plaintext")
	}

	// Same passphrase, same salt file: a second cipher opens the tree.
	c2, err := LoadCipher(root, "correct horse battery staple", "")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Cipher = c2
	s2, _ := New(cfg)
	got, err := s2.ReadItem("vault", "secret")
	if err != nil {
		t.Fatalf("ReadItem: %v", err)
	}
	if got.Value != "value" {
		t.Errorf("Value = %v", got.Value)
	}

	plain, _ := New(DefaultConfig(root))
	if _, err := plain.ReadItem("vault", "secret"); !errors.Is(err, ErrKeyRequired) {
		t.Errorf("err = %v, want ErrKeyRequired", err)
	}
}

func TestLoadCipher(t *testing.T) {
	root := t.TempDir()

	if c, err := LoadCipher(root, "", ""); c != nil || err != nil {
		t.Errorf("empty secret = %v, %v", c, err)
	}
	if _, err := LoadCipher(root, "short", ""); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("err = %v, want ErrSecretTooShort", err)
	}

	hexKey := strings.Repeat("ab", 32)
	c, err := LoadCipher(root, hexKey, adaptive.CipherChaCha20)
	if err != nil {
		t.Fatalf("LoadCipher hex: %v", err)
	}
	if c.Type() != adaptive.CipherChaCha20 {
		t.Errorf("Type = %s", c.Type())
	}
	if _, err := os.Stat(filepath.Join(root, saltFile)); !os.IsNotExist(err) {
		t.Error("hex key should not create a salt file")
	}
}
