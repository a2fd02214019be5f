package session

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/restx/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Entry declares a key that sessions may hold.
type Entry interface {
	Key() string
}

// TypedEntry is an Entry that knows how to turn a domain value into the string
// id stored in the cookie, and back.
type TypedEntry[T any] struct {
	key    string
	encode func(T) (string, error)
	decode func(context.Context, string) (T, error)
}

// NewEntry declares a typed session entry.
func NewEntry[T any](key string, encode func(T) (string, error), decode func(context.Context, string) (T, error)) *TypedEntry[T] {
	return &TypedEntry[T]{key: key, encode: encode, decode: decode}
}

// StringEntry declares an entry whose value is its own id.
func StringEntry(key string) *TypedEntry[string] {
	return NewEntry(key,
		func(v string) (string, error) { return v, nil },
		func(_ context.Context, id string) (string, error) { return id, nil },
	)
}

// Key implements Entry.
func (e *TypedEntry[T]) Key() string {
	return e.key
}

// Definition is the ordered set of entries a session may carry.
// It is immutable once built.
type Definition struct {
	keys  []string
	index map[string]Entry
}

// NewDefinition builds a definition. On duplicate keys the later entry wins.
func NewDefinition(entries ...Entry) *Definition {
	d := &Definition{index: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if _, exists := d.index[e.Key()]; !exists {
			d.keys = append(d.keys, e.Key())
		}
		d.index[e.Key()] = e
	}
	return d
}

// Has reports whether key is declared.
func (d *Definition) Has(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Keys returns declared keys in declaration order.
func (d *Definition) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of declared entries.
func (d *Definition) Len() int {
	return len(d.keys)
}

// Session is the client-held key to value-id mapping of one request.
// A Session is never mutated: With, Without and Clear return new instances,
// which is how the dispatcher detects that a handler changed it.
type Session struct {
	def      *Definition
	valueIDs map[string]string
}

// New creates a session bound to def. Keys not declared in def are dropped.
func New(def *Definition, valueIDs map[string]string) *Session {
	s := &Session{def: def, valueIDs: make(map[string]string, len(valueIDs))}
	for k, v := range valueIDs {
		if def.Has(k) {
			s.valueIDs[k] = v
		}
	}
	return s
}

// Definition returns the definition the session is bound to.
func (s *Session) Definition() *Definition {
	return s.def
}

// ValueID returns the raw id stored under key.
func (s *Session) ValueID(key string) (string, bool) {
	v, ok := s.valueIDs[key]
	return v, ok
}

// ValueIDs returns a copy of the key to value-id mapping.
func (s *Session) ValueIDs() map[string]string {
	return maps.Clone(s.valueIDs)
}

// Keys returns the keys present in the session, in declaration order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.valueIDs))
	for _, k := range s.def.keys {
		if _, ok := s.valueIDs[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of keys present.
func (s *Session) Len() int {
	return len(s.valueIDs)
}

// With returns a copy of s with key set to valueID.
// Undeclared keys are rejected with an ArgumentError.
func (s *Session) With(key, valueID string) (*Session, error) {
	if !s.def.Has(key) {
		return nil, domain.InvalidArgument("undeclared session key %q", key)
	}
	next := &Session{def: s.def, valueIDs: maps.Clone(s.valueIDs)}
	next.valueIDs[key] = valueID
	return next, nil
}

// Without returns a copy of s without key.
func (s *Session) Without(key string) *Session {
	next := &Session{def: s.def, valueIDs: maps.Clone(s.valueIDs)}
	delete(next.valueIDs, key)
	return next
}

// Clear returns an empty session bound to the same definition.
func (s *Session) Clear() *Session {
	return &Session{def: s.def, valueIDs: make(map[string]string)}
}

// Decode copies the value ids into out, a pointer to a struct or map.
// Struct fields are matched by their `session` tag; ids are converted to the
// field types ("42" into an int field).
func (s *Session) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "session",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create session decoder: %w", err)
	}
	if err := dec.Decode(s.valueIDs); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	return nil
}

// Get resolves the domain value stored for entry.
// ok is false when the session holds no id for the entry.
func Get[T any](ctx context.Context, s *Session, entry *TypedEntry[T]) (value T, ok bool, err error) {
	id, ok := s.valueIDs[entry.key]
	if !ok {
		return value, false, nil
	}
	value, err = entry.decode(ctx, id)
	if err != nil {
		return value, true, fmt.Errorf("failed to load session entry %q: %w", entry.key, err)
	}
	return value, true, nil
}
