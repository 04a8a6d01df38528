package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/asakaida/commerce-api/internal/entities"
)

// ErrTableNotFound is returned when a logical table name is not registered
var ErrTableNotFound = errors.New("table not found")

// tableNamePattern restricts logical names to lower snake case
var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry maps logical table names to entity descriptors
type Registry struct {
	descriptors map[string]*entities.Descriptor
}

// NewRegistry creates a registry from the given descriptors.
// Every descriptor is validated and every reference must point to a
// registered table.
func NewRegistry(descriptors ...*entities.Descriptor) (*Registry, error) {
	r := &Registry{descriptors: make(map[string]*entities.Descriptor, len(descriptors))}

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid descriptor: %w", err)
		}
		if !tableNamePattern.MatchString(d.Name) {
			return nil, fmt.Errorf("invalid table name: %q", d.Name)
		}
		if _, exists := r.descriptors[d.Name]; exists {
			return nil, fmt.Errorf("table %s is registered twice", d.Name)
		}
		r.descriptors[d.Name] = d
	}

	// Validate references
	for _, d := range r.descriptors {
		for _, f := range d.Fields {
			if f.Ref == nil {
				continue
			}
			target, ok := r.descriptors[f.Ref.Table]
			if !ok {
				return nil, fmt.Errorf("%s.%s references unknown table %s", d.Name, f.Name, f.Ref.Table)
			}
			if target.HasCompositeKey() {
				return nil, fmt.Errorf("%s.%s references composite-key table %s", d.Name, f.Name, f.Ref.Table)
			}
		}
	}

	return r, nil
}

// NewDefaultRegistry creates a registry holding the store catalog
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(Catalog()...)
}

// Resolve returns the descriptor for a logical table name.
// Unknown or malformed names yield ErrTableNotFound.
func (r *Registry) Resolve(table string) (*entities.Descriptor, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	d, ok := r.descriptors[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return d, nil
}

// Tables returns the registered table names in lexical order
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
