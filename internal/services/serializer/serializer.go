package serializer

import (
	"context"
	"fmt"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
)

// Resolver looks up descriptors of referenced tables
type Resolver interface {
	Resolve(table string) (*entities.Descriptor, error)
}

// Serializer converts records to plain objects and copies submitted
// fields onto records
type Serializer struct {
	resolver Resolver
	repo     repositories.EntityRepository
}

// NewSerializer creates a new serializer
func NewSerializer(resolver Resolver, repo repositories.EntityRepository) *Serializer {
	return &Serializer{resolver: resolver, repo: repo}
}

// ToPlainObject converts a record to a JSON-ready map.
// Reference fields with an embed alias also carry the referenced row,
// flattened one level, under that alias. A nil record yields nil.
func (s *Serializer) ToPlainObject(ctx context.Context, desc *entities.Descriptor, rec entities.Record) (map[string]interface{}, error) {
	if rec == nil {
		return nil, nil
	}

	related, err := s.preload(ctx, desc, []entities.Record{rec})
	if err != nil {
		return nil, err
	}
	return plainObject(desc, rec, related), nil
}

// ToPlainObjects converts a list of records, preserving order.
// Referenced rows are loaded with one query per embedded reference.
func (s *Serializer) ToPlainObjects(ctx context.Context, desc *entities.Descriptor, recs []entities.Record) ([]map[string]interface{}, error) {
	related, err := s.preload(ctx, desc, recs)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		out = append(out, plainObject(desc, rec, related))
	}
	return out, nil
}

// relatedRows holds referenced rows by field name, then by key text
type relatedRows map[string]map[string]entities.Record

// preload fetches every row referenced by an embedded field of recs
func (s *Serializer) preload(ctx context.Context, desc *entities.Descriptor, recs []entities.Record) (relatedRows, error) {
	related := make(relatedRows)
	for _, f := range desc.Fields {
		if f.Ref == nil || f.Ref.EmbedAs == "" {
			continue
		}

		seen := make(map[string]bool)
		var keys []entities.Key
		for _, rec := range recs {
			if rec[f.Name] == nil {
				continue
			}
			key := entities.Key{rec[f.Name]}
			if !seen[key.String()] {
				seen[key.String()] = true
				keys = append(keys, key)
			}
		}

		rows := make(map[string]entities.Record, len(keys))
		related[f.Name] = rows
		if len(keys) == 0 {
			continue
		}

		target, err := s.resolver.Resolve(f.Ref.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f.Ref.Table, err)
		}
		found, err := s.repo.FindByKeys(ctx, target, keys)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f.Ref.Table, err)
		}
		for _, row := range found {
			rows[target.KeyOf(row).String()] = row
		}
	}
	return related, nil
}

// plainObject builds the output map of one record
func plainObject(desc *entities.Descriptor, rec entities.Record, related relatedRows) map[string]interface{} {
	obj := make(map[string]interface{}, len(desc.Fields))
	for _, f := range desc.Fields {
		obj[f.Name] = rec[f.Name]

		if f.Ref == nil || f.Ref.EmbedAs == "" {
			continue
		}

		var row entities.Record
		if rec[f.Name] != nil {
			row = related[f.Name][entities.Key{rec[f.Name]}.String()]
		}
		obj[f.Ref.EmbedAs] = flatten(row)
	}
	return obj
}

// ApplyFields copies every submitted value that names a settable field
// onto rec. A reference field may also be addressed by its embed alias.
// Unknown keys, generated ids and managed timestamps are ignored.
func (s *Serializer) ApplyFields(ctx context.Context, desc *entities.Descriptor, rec entities.Record, input map[string]interface{}) error {
	for _, f := range desc.Fields {
		if !f.Settable() {
			continue
		}

		raw, ok := input[f.Name]
		if !ok && f.Ref != nil && f.Ref.EmbedAs != "" {
			raw, ok = input[f.Ref.EmbedAs]
		}
		if !ok {
			continue
		}

		if f.Ref != nil {
			raw = referenceID(raw)
		}

		value, err := f.Kind.Coerce(raw)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", f.Name, err)
		}

		if f.Ref != nil && value != nil {
			related, err := s.lookup(ctx, f, value)
			if err != nil {
				return err
			}
			if related == nil {
				return fmt.Errorf("invalid value for %s: %s %v does not exist", f.Name, f.Ref.Table, value)
			}
		}

		rec[f.Name] = value
	}

	return nil
}

// lookup loads the row referenced by a foreign key value
func (s *Serializer) lookup(ctx context.Context, f *entities.Field, value interface{}) (entities.Record, error) {
	if value == nil {
		return nil, nil
	}

	target, err := s.resolver.Resolve(f.Ref.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", f.Ref.Table, err)
	}

	related, err := s.repo.FindByKey(ctx, target, entities.Key{value})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %v: %w", f.Ref.Table, value, err)
	}
	return related, nil
}

// referenceID accepts {"id": n} as well as a bare id
func referenceID(raw interface{}) interface{} {
	if m, ok := raw.(map[string]interface{}); ok {
		return m["id"]
	}
	return raw
}

// flatten returns the scalar fields of a related row, or nil
func flatten(rec entities.Record) interface{} {
	if rec == nil {
		return nil
	}
	obj := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		obj[k] = v
	}
	return obj
}
