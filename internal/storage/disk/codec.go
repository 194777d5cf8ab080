package disk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/aci-go/internal/core/domain"
)

var errEmptyRecord = errors.New("disk: empty record")

type ruleRecord struct {
	Kind  string `json:"kind"`
	Match string `json:"match"`
}

type itemRecord struct {
	Key        string       `json:"key"`
	Value      any          `json:"value"`
	Owner      string       `json:"owner"`
	ReadRules  []ruleRecord `json:"read_rules"`
	WriteRules []ruleRecord `json:"write_rules"`
	Subs       []string     `json:"subs"`
	Type       string       `json:"type"`
	Version    string       `json:"version"`
	MaxLen     int          `json:"max_len,omitempty"`
}

// legacyItem is the tagged layout that predates split rule sets.
type legacyItem struct {
	Key         string         `json:"key"`
	Value       any            `json:"value"`
	Owner       any            `json:"owner"`
	Permissions map[string]any `json:"permissions"`
	Subs        []any          `json:"subs"`
	Type        *string        `json:"type"`
}

// Manifest lists the member keys of a database.
type Manifest struct {
	Name    string   `json:"name"`
	Keys    []string `json:"keys"`
	Version string   `json:"version"`
}

type legacyManifest struct {
	Name  string   `json:"name"`
	DBKey string   `json:"dbKey"`
	Keys  []string `json:"keys"`
	Ver   string   `json:"ver"`
	Vers  string   `json:"version"`
}

func encodeItem(it *domain.Item) ([]byte, error) {
	rec := itemRecord{
		Key:        it.Key,
		Value:      it.Value,
		Owner:      it.Owner,
		ReadRules:  toRuleRecords(it.ReadRules),
		WriteRules: toRuleRecords(it.WriteRules),
		Subs:       it.Subs,
		Type:       it.Type,
		Version:    domain.SchemaVersion,
		MaxLen:     it.MaxLen,
	}
	if rec.Subs == nil {
		rec.Subs = []string{}
	}
	if rec.MaxLen == domain.DefaultMaxLen {
		rec.MaxLen = 0
	}
	return json.Marshal(rec)
}

// decodeItem parses an item file. migrated reports whether the record was
// in a legacy layout.
func decodeItem(data []byte) (it *domain.Item, migrated bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, errEmptyRecord
	}

	if data[0] == '[' {
		it, err = decodeLegacyListItem(data)
		return it, true, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, fmt.Errorf("disk: decode item: %w", err)
	}
	if _, ok := fields["permissions"]; ok {
		var legacy legacyItem
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, false, fmt.Errorf("disk: decode legacy item: %w", err)
		}
		return fromLegacy(legacy), true, nil
	}

	var rec itemRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("disk: decode item: %w", err)
	}
	it = &domain.Item{
		Key:        rec.Key,
		Value:      rec.Value,
		Owner:      rec.Owner,
		ReadRules:  fromRuleRecords(rec.ReadRules),
		WriteRules: fromRuleRecords(rec.WriteRules),
		Subs:       rec.Subs,
		Type:       rec.Type,
		Version:    rec.Version,
		MaxLen:     rec.MaxLen,
	}
	applyDefaults(it)
	return it, false, nil
}

func decodeLegacyListItem(data []byte) (*domain.Item, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("disk: decode legacy list item: %w", err)
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("disk: legacy list item has %d fields", len(fields))
	}

	var legacy legacyItem
	targets := []any{&legacy.Key, &legacy.Value, &legacy.Owner, &legacy.Permissions, &legacy.Subs}
	for i, raw := range fields {
		if i >= len(targets) {
			break
		}
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return nil, fmt.Errorf("disk: legacy list item field %d: %w", i, err)
		}
	}
	return fromLegacy(legacy), nil
}

func fromLegacy(l legacyItem) *domain.Item {
	it := &domain.Item{
		Key:   l.Key,
		Value: l.Value,
	}
	if owner, ok := l.Owner.(string); ok {
		it.Owner = owner
	}
	if l.Type != nil {
		it.Type = *l.Type
	}
	it.ReadRules = legacyRules(l.Permissions["read"])
	it.WriteRules = legacyRules(l.Permissions["write"])
	for _, s := range l.Subs {
		if str, ok := s.(string); ok {
			it.Subs = append(it.Subs, str)
		} else {
			it.Subs = append(it.Subs, fmt.Sprint(s))
		}
	}
	applyDefaults(it)
	return it
}

// legacyRules converts [[type, id], ...] pairs. Malformed pairs are skipped.
func legacyRules(v any) []domain.PermissionRule {
	pairs, ok := v.([]any)
	if !ok {
		return nil
	}
	var rules []domain.PermissionRule
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		tag, ok1 := pair[0].(string)
		match, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			continue
		}
		rules = append(rules, domain.PermissionRule{Kind: parseKind(tag), Match: match})
	}
	return rules
}

func applyDefaults(it *domain.Item) {
	if it.Value == nil {
		it.Value = ""
	}
	if it.Type == "" {
		it.Type = domain.DefaultItemType
	}
	if it.Version == "" {
		it.Version = domain.SchemaVersion
	}
	if it.MaxLen <= 0 {
		it.MaxLen = domain.DefaultMaxLen
	}
	if it.Subs == nil {
		it.Subs = []string{}
	}
}

// parseKind keeps unrecognized tags verbatim so no rule is lost on a
// round trip.
func parseKind(tag string) domain.IdentityKind {
	if k, ok := domain.ParseIdentityKind(tag); ok {
		return k
	}
	return domain.IdentityKind(tag)
}

func toRuleRecords(rules []domain.PermissionRule) []ruleRecord {
	out := make([]ruleRecord, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleRecord{Kind: string(r.Kind), Match: r.Match})
	}
	return out
}

func fromRuleRecords(recs []ruleRecord) []domain.PermissionRule {
	if len(recs) == 0 {
		return nil
	}
	out := make([]domain.PermissionRule, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.PermissionRule{Kind: parseKind(r.Kind), Match: r.Match})
	}
	return out
}

func encodeManifest(m Manifest) ([]byte, error) {
	if m.Keys == nil {
		m.Keys = []string{}
	}
	m.Version = domain.SchemaVersion
	return json.Marshal(m)
}

func decodeManifest(data []byte) (m Manifest, migrated bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Manifest{}, false, errEmptyRecord
	}

	if data[0] == '[' {
		var fields []json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return Manifest{}, false, fmt.Errorf("disk: decode legacy manifest: %w", err)
		}
		if len(fields) < 2 {
			return Manifest{}, false, fmt.Errorf("disk: legacy manifest has %d fields", len(fields))
		}
		if err := json.Unmarshal(fields[0], &m.Name); err != nil {
			return Manifest{}, false, fmt.Errorf("disk: legacy manifest name: %w", err)
		}
		if err := json.Unmarshal(fields[1], &m.Keys); err != nil {
			return Manifest{}, false, fmt.Errorf("disk: legacy manifest keys: %w", err)
		}
		m.Version = domain.SchemaVersion
		return m, true, nil
	}

	var raw legacyManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return Manifest{}, false, fmt.Errorf("disk: decode manifest: %w", err)
	}
	m = Manifest{Name: raw.Name, Keys: raw.Keys, Version: raw.Vers}
	if m.Name == "" && raw.DBKey != "" {
		m.Name = raw.DBKey
		m.Version = raw.Ver
		migrated = true
	}
	if m.Version == "" {
		m.Version = domain.SchemaVersion
	}
	return m, migrated, nil
}
