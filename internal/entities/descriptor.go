package entities

import (
	"fmt"
	"strings"
)

// Kind is the storage type of a field
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindTime
)

// String returns the lower-case kind name
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Ref describes a foreign key to the primary key of another table.
// Example: customer.pref_id -> pref.id, embedded as "Pref"
type Ref struct {
	Table   string // Logical name of the referenced table
	EmbedAs string // Output key for the flattened related row (empty = no embedding)
}

// Field is one entry of a descriptor's field table
type Field struct {
	Name      string // Name used in the JSON API (e.g., "name01", "product_id")
	Column    string // Column name in the database
	Kind      Kind
	Generated bool // Assigned by the database on insert (surrogate id)
	Managed   bool // Maintained by the service (create_date, update_date)
	Ref       *Ref
}

// Settable reports whether the field may be copied from submitted input
func (f *Field) Settable() bool {
	return !f.Generated && !f.Managed
}

// Descriptor is the typed registration of one logical table
type Descriptor struct {
	Name            string   // Logical name used in URLs and scopes (e.g., "product")
	SQLTable        string   // Physical table name (e.g., "dtb_product")
	Fields          []*Field // Field table in output order
	Key             []string // Key field names, in route order
	SoftDeleteField string   // Name of the soft-delete flag field (empty = unsupported)

	byName map[string]*Field
}

// GetField returns the field definition by name
func (d *Descriptor) GetField(name string) *Field {
	if d.byName == nil {
		d.index()
	}
	return d.byName[name]
}

// FieldForInput returns the field addressed by an input key.
// Both the field name and the embed alias of a reference are accepted.
func (d *Descriptor) FieldForInput(key string) *Field {
	if f := d.GetField(key); f != nil {
		return f
	}
	for _, f := range d.Fields {
		if f.Ref != nil && f.Ref.EmbedAs != "" && f.Ref.EmbedAs == key {
			return f
		}
	}
	return nil
}

// KeyFields returns the key field definitions in route order
func (d *Descriptor) KeyFields() []*Field {
	fields := make([]*Field, 0, len(d.Key))
	for _, name := range d.Key {
		if f := d.GetField(name); f != nil {
			fields = append(fields, f)
		}
	}
	return fields
}

// HasCompositeKey reports whether the table is keyed by more than one field
func (d *Descriptor) HasCompositeKey() bool {
	return len(d.Key) > 1
}

// SupportsSoftDelete reports whether the table carries a soft-delete flag
func (d *Descriptor) SupportsSoftDelete() bool {
	return d.SoftDeleteField != "" && d.GetField(d.SoftDeleteField) != nil
}

// ReadScope returns the scope required to read the table
func (d *Descriptor) ReadScope() string {
	return d.Name + "_read"
}

// WriteScope returns the scope string required to modify the table
func (d *Descriptor) WriteScope() string {
	return d.Name + "_read " + d.Name + "_write"
}

// Validate checks if the descriptor is well formed
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor name is required")
	}
	if d.SQLTable == "" {
		return fmt.Errorf("descriptor %s: sql table is required", d.Name)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("descriptor %s: at least one field is required", d.Name)
	}
	if len(d.Key) == 0 {
		return fmt.Errorf("descriptor %s: key is required", d.Name)
	}

	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" || f.Column == "" {
			return fmt.Errorf("descriptor %s: field name and column are required", d.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("descriptor %s: duplicate field %s", d.Name, f.Name)
		}
		seen[f.Name] = true
	}
	for _, k := range d.Key {
		if !seen[k] {
			return fmt.Errorf("descriptor %s: key field %s is not defined", d.Name, k)
		}
	}
	if d.SoftDeleteField != "" && !seen[d.SoftDeleteField] {
		return fmt.Errorf("descriptor %s: soft-delete field %s is not defined", d.Name, d.SoftDeleteField)
	}

	d.index()
	return nil
}

// String returns a short description, e.g. product_category(product_id,category_id)
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(d.Key, ","))
}

func (d *Descriptor) index() {
	byName := make(map[string]*Field, len(d.Fields))
	for _, f := range d.Fields {
		byName[f.Name] = f
	}
	d.byName = byName
}
