package domain

import (
	"fmt"
	"strconv"
)

// Item constraints and defaults.
const (
	// DefaultMaxLen bounds list values; appends evict from the front.
	DefaultMaxLen = 100000

	// DefaultItemType is the type tag of items created without one.
	DefaultItemType = "string"

	// SchemaVersion is written into every item file and manifest.
	SchemaVersion = "2020.07.01.1"
)

// Item is the smallest persisted unit: one key's value plus its rules.
//
// Item is not safe for concurrent use; the storage engine serializes
// access per item.
type Item struct {
	Key        string
	Value      any
	Owner      string
	ReadRules  []PermissionRule
	WriteRules []PermissionRule
	Subs       []string
	Type       string
	Version    string
	MaxLen     int
}

// NewItem creates an item owned by the given identity. A non-anonymous,
// non-backend owner is granted read and write on its own principal.
func NewItem(key string, value any, owner Identity) *Item {
	it := &Item{
		Key:     key,
		Value:   value,
		Owner:   owner.Principal,
		Type:    DefaultItemType,
		Version: SchemaVersion,
		MaxLen:  DefaultMaxLen,
	}
	if !owner.IsAnonymous() && !owner.IsBackend() {
		rule := PermissionRule{Kind: owner.Kind, Match: owner.Principal}
		it.ReadRules = []PermissionRule{rule}
		it.WriteRules = []PermissionRule{rule}
	}
	return it
}

// CanRead reports whether id may read the item.
func (it *Item) CanRead(id Identity) bool {
	return Allowed(it.ReadRules, id)
}

// CanWrite reports whether id may write the item.
func (it *Item) CanWrite(id Identity) bool {
	return Allowed(it.WriteRules, id)
}

// Get returns the item value. List values are returned as a copy.
func (it *Item) Get(id Identity) (any, error) {
	if !it.CanRead(id) {
		return nil, ErrAccessDenied
	}
	if list, ok := it.Value.([]any); ok {
		return cloneList(list), nil
	}
	return it.Value, nil
}

// Set replaces the item value (last write wins) and returns it.
func (it *Item) Set(value any, id Identity) (any, error) {
	if !it.CanWrite(id) {
		return nil, ErrAccessDenied
	}
	it.Value = value
	return value, nil
}

// GetIndex returns the list elements at the given indices keyed by index.
func (it *Item) GetIndex(indices []int, id Identity) (map[int]any, error) {
	if !it.CanRead(id) {
		return nil, ErrAccessDenied
	}
	list, err := it.list()
	if err != nil {
		return nil, err
	}
	out := make(map[int]any, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(list) {
			return nil, ErrIndexOutOfRange.WithDetails("index " + strconv.Itoa(idx))
		}
		out[idx] = list[idx]
	}
	return out, nil
}

// SetIndex assigns values[i] to indices[i]. All indices are validated
// before anything is written, so an out-of-range index leaves the list
// untouched.
func (it *Item) SetIndex(indices []int, values []any, id Identity) error {
	if !it.CanWrite(id) {
		return ErrAccessDenied
	}
	if len(indices) != len(values) {
		return ErrMalformedRequest.WithDetails(fmt.Sprintf("%d indices, %d values", len(indices), len(values)))
	}
	list, err := it.list()
	if err != nil {
		return err
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(list) {
			return ErrIndexOutOfRange.WithDetails("index " + strconv.Itoa(idx))
		}
	}
	updated := cloneList(list)
	for i, idx := range indices {
		updated[idx] = values[i]
	}
	it.Value = updated
	return nil
}

// Append adds values to the end of the list and evicts from the front
// until the length is within MaxLen.
func (it *Item) Append(values []any, id Identity) error {
	if !it.CanWrite(id) {
		return ErrAccessDenied
	}
	list, err := it.list()
	if err != nil {
		return err
	}
	list = append(list, values...)
	if limit := it.maxLen(); len(list) > limit {
		list = cloneList(list[len(list)-limit:])
	}
	it.Value = list
	return nil
}

// Len returns the list length.
func (it *Item) Len(id Identity) (int, error) {
	if !it.CanRead(id) {
		return 0, ErrAccessDenied
	}
	list, err := it.list()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Recent returns the last n elements in their original order. When n
// exceeds the length the whole list is returned.
func (it *Item) Recent(n int, id Identity) ([]any, error) {
	if !it.CanRead(id) {
		return nil, ErrAccessDenied
	}
	if n < 0 {
		return nil, ErrMalformedRequest.WithDetails("negative count")
	}
	list, err := it.list()
	if err != nil {
		return nil, err
	}
	if n > len(list) {
		n = len(list)
	}
	return cloneList(list[len(list)-n:]), nil
}

// Clone returns a copy of the item. List values are copied one level deep.
func (it *Item) Clone() *Item {
	c := *it
	if list, ok := it.Value.([]any); ok {
		c.Value = cloneList(list)
	}
	c.ReadRules = append([]PermissionRule(nil), it.ReadRules...)
	c.WriteRules = append([]PermissionRule(nil), it.WriteRules...)
	c.Subs = append([]string(nil), it.Subs...)
	return &c
}

func (it *Item) list() ([]any, error) {
	switch v := it.Value.(type) {
	case []any:
		return v, nil
	case nil:
		return nil, ErrNotList.WithDetails("value is empty")
	default:
		return nil, ErrNotList.WithDetails(fmt.Sprintf("value is %T", v))
	}
}

func (it *Item) maxLen() int {
	if it.MaxLen <= 0 {
		return DefaultMaxLen
	}
	return it.MaxLen
}

func cloneList(list []any) []any {
	out := make([]any, len(list))
	copy(out, list)
	return out
}
