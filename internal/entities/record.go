package entities

import (
	"fmt"
	"strings"
)

// Record is one entity instance: field name -> typed value.
// Values are int64, float64, string, bool, time.Time or nil.
type Record map[string]interface{}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Key is a typed key value, aligned with Descriptor.Key
type Key []interface{}

// String returns the key joined with "/", as it appears in routes
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "/")
}

// KeyOf extracts the key of a record
func (d *Descriptor) KeyOf(rec Record) Key {
	key := make(Key, len(d.Key))
	for i, name := range d.Key {
		key[i] = rec[name]
	}
	return key
}

// ParseKey coerces raw route segments into a typed key.
// The number of segments must match the key shape.
func (d *Descriptor) ParseKey(raw ...string) (Key, error) {
	if len(raw) != len(d.Key) {
		return nil, fmt.Errorf("%s is keyed by %s", d.Name, strings.Join(d.Key, ", "))
	}

	key := make(Key, len(raw))
	for i, f := range d.KeyFields() {
		v, err := f.Kind.Coerce(raw[i])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.Name, err)
		}
		key[i] = v
	}
	return key, nil
}

// Matches reports whether the record carries the given key
func (d *Descriptor) Matches(rec Record, key Key) bool {
	if len(key) != len(d.Key) {
		return false
	}
	for i, name := range d.Key {
		if !SameValue(rec[name], key[i]) {
			return false
		}
	}
	return true
}

// SameValue compares two coerced values
func SameValue(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
