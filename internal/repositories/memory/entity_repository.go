package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
)

// EntityRepository is an in-process EntityRepository.
// Rows are kept per logical table in insertion order; generated fields
// receive a per-table sequence.
type EntityRepository struct {
	mu        sync.RWMutex
	tables    map[string][]entities.Record
	sequences map[string]int64
}

// NewEntityRepository creates an empty in-memory entity repository
func NewEntityRepository() *EntityRepository {
	return &EntityRepository{
		tables:    make(map[string][]entities.Record),
		sequences: make(map[string]int64),
	}
}

var _ repositories.EntityRepository = (*EntityRepository)(nil)

// Seed stores rows as-is, advancing the sequence past any generated ids
func (r *EntityRepository) Seed(desc *entities.Descriptor, rows ...entities.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		rec := normalize(desc, row)
		for _, f := range desc.Fields {
			if !f.Generated {
				continue
			}
			if id, ok := rec[f.Name].(int64); ok && id > r.sequences[desc.Name] {
				r.sequences[desc.Name] = id
			}
		}
		r.tables[desc.Name] = append(r.tables[desc.Name], rec)
	}
}

// FindAll retrieves every row of the table, ordered by key
func (r *EntityRepository) FindAll(ctx context.Context, desc *entities.Descriptor) ([]entities.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.tables[desc.Name]
	out := make([]entities.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return lessKey(desc.KeyOf(out[i]), desc.KeyOf(out[j]))
	})
	return out, nil
}

// FindByKey retrieves the row with the given key
func (r *EntityRepository) FindByKey(ctx context.Context, desc *entities.Descriptor, key entities.Key) (entities.Record, error) {
	if len(key) != len(desc.Key) {
		return nil, fmt.Errorf("%s is keyed by %d fields, got %d", desc.Name, len(desc.Key), len(key))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(desc, key); i >= 0 {
		return r.tables[desc.Name][i].Clone(), nil
	}
	return nil, nil
}

// FindByKeys retrieves the rows with any of the given keys
func (r *EntityRepository) FindByKeys(ctx context.Context, desc *entities.Descriptor, keys []entities.Key) ([]entities.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.Record, 0, len(keys))
	for _, key := range keys {
		if len(key) != len(desc.Key) {
			return nil, fmt.Errorf("%s is keyed by %d fields, got %d", desc.Name, len(desc.Key), len(key))
		}
		if i := r.indexOf(desc, key); i >= 0 {
			out = append(out, r.tables[desc.Name][i].Clone())
		}
	}
	return out, nil
}

// Insert persists a new row and fills generated fields on rec
func (r *EntityRepository) Insert(ctx context.Context, desc *entities.Descriptor, rec entities.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := normalize(desc, rec)
	var generated []*entities.Field
	for _, f := range desc.Fields {
		if f.Generated {
			generated = append(generated, f)
		}
	}

	if len(generated) == 0 {
		for _, f := range desc.KeyFields() {
			if row[f.Name] == nil {
				return fmt.Errorf("failed to insert %s: %s is required", desc.Name, f.Name)
			}
		}
		if r.indexOf(desc, desc.KeyOf(row)) >= 0 {
			return fmt.Errorf("failed to insert %s: duplicate key %s", desc.Name, desc.KeyOf(row))
		}
	}

	for _, f := range generated {
		r.sequences[desc.Name]++
		row[f.Name] = r.sequences[desc.Name]
		rec[f.Name] = r.sequences[desc.Name]
	}

	r.tables[desc.Name] = append(r.tables[desc.Name], row)
	return nil
}

// Update overwrites the row identified by key with the values of rec
func (r *EntityRepository) Update(ctx context.Context, desc *entities.Descriptor, key entities.Key, rec entities.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(desc, key)
	if i < 0 {
		return fmt.Errorf("failed to update %s: no row with key %s", desc.Name, key)
	}

	row := normalize(desc, rec)
	if j := r.indexOf(desc, desc.KeyOf(row)); j >= 0 && j != i {
		return fmt.Errorf("failed to update %s: duplicate key %s", desc.Name, desc.KeyOf(row))
	}
	for _, f := range desc.Fields {
		if f.Generated {
			row[f.Name] = r.tables[desc.Name][i][f.Name]
		}
	}

	r.tables[desc.Name][i] = row
	return nil
}

// indexOf returns the position of the row with the given key, or -1
func (r *EntityRepository) indexOf(desc *entities.Descriptor, key entities.Key) int {
	for i, row := range r.tables[desc.Name] {
		if desc.Matches(row, key) {
			return i
		}
	}
	return -1
}

// normalize copies the descriptor's fields out of rec, dropping anything else
func normalize(desc *entities.Descriptor, rec entities.Record) entities.Record {
	row := make(entities.Record, len(desc.Fields))
	for _, f := range desc.Fields {
		row[f.Name] = rec[f.Name]
	}
	return row
}

// lessKey orders keys numerically where both sides are integers
func lessKey(a, b entities.Key) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		ai, aok := a[i].(int64)
		bi, bok := b[i].(int64)
		if aok && bok {
			if ai != bi {
				return ai < bi
			}
			continue
		}
		as, bs := fmt.Sprint(a[i]), fmt.Sprint(b[i])
		if as != bs {
			return as < bs
		}
	}
	return len(a) < len(b)
}
