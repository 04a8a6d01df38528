package crud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
	"github.com/asakaida/commerce-api/internal/services/serializer"
)

var (
	// ErrSoftDeleteUnsupported is returned when deleting from a table without a soft-delete flag
	ErrSoftDeleteUnsupported = errors.New("delete is not supported")

	// ErrKeyShape is returned when the route segments do not match the table's key
	ErrKeyShape = errors.New("key does not match table")

	// ErrNotFound is returned when a write targets a missing row
	ErrNotFound = errors.New("entity not found")
)

// Service executes CRUD operations on resolved, authorized tables
type Service struct {
	repo       repositories.EntityRepository
	serializer *serializer.Serializer
	now        func() time.Time
}

// NewService creates a new CRUD service
func NewService(repo repositories.EntityRepository, s *serializer.Serializer) *Service {
	return &Service{
		repo:       repo,
		serializer: s,
		now:        time.Now,
	}
}

// List returns every row of the table as plain objects
func (s *Service) List(ctx context.Context, desc *entities.Descriptor) ([]map[string]interface{}, error) {
	recs, err := s.repo.FindAll(ctx, desc)
	if err != nil {
		return nil, err
	}
	return s.serializer.ToPlainObjects(ctx, desc, recs)
}

// Get returns the row with the given route key, or nil when no row matches
func (s *Service) Get(ctx context.Context, desc *entities.Descriptor, rawKey ...string) (map[string]interface{}, error) {
	if len(rawKey) != len(desc.Key) {
		return nil, fmt.Errorf("%w: %s", ErrKeyShape, desc)
	}

	key, err := desc.ParseKey(rawKey...)
	if err != nil {
		// An id that cannot exist matches no row
		return nil, nil
	}

	rec, err := s.repo.FindByKey(ctx, desc, key)
	if err != nil {
		return nil, err
	}
	return s.serializer.ToPlainObject(ctx, desc, rec)
}

// Create inserts a row built from input and returns its key
func (s *Service) Create(ctx context.Context, desc *entities.Descriptor, input map[string]interface{}) (entities.Key, error) {
	rec := make(entities.Record, len(desc.Fields))
	for _, f := range desc.Fields {
		rec[f.Name] = nil
	}
	if desc.SupportsSoftDelete() {
		rec[desc.SoftDeleteField] = int64(0)
	}

	if err := s.serializer.ApplyFields(ctx, desc, rec, input); err != nil {
		return nil, err
	}

	for _, f := range desc.KeyFields() {
		if !f.Generated && rec[f.Name] == nil {
			return nil, fmt.Errorf("%s is required", f.Name)
		}
	}

	now := s.now()
	for _, f := range desc.Fields {
		if f.Managed {
			rec[f.Name] = now
		}
	}

	if err := s.repo.Insert(ctx, desc, rec); err != nil {
		return nil, err
	}

	key := desc.KeyOf(rec)
	slog.InfoContext(ctx, "entity created", "table", desc.Name, "key", key.String())
	return key, nil
}

// Update copies input onto the row with the given route key
func (s *Service) Update(ctx context.Context, desc *entities.Descriptor, rawKey []string, input map[string]interface{}) error {
	key, rec, err := s.load(ctx, desc, rawKey)
	if err != nil {
		return err
	}

	if err := s.serializer.ApplyFields(ctx, desc, rec, input); err != nil {
		return err
	}
	touch(desc, rec, s.now())

	if err := s.repo.Update(ctx, desc, key, rec); err != nil {
		return err
	}

	slog.InfoContext(ctx, "entity updated", "table", desc.Name, "key", key.String())
	return nil
}

// Delete marks the row with the given route key as deleted
func (s *Service) Delete(ctx context.Context, desc *entities.Descriptor, rawKey []string) error {
	if !desc.SupportsSoftDelete() {
		return fmt.Errorf("%w: %s has no soft-delete flag", ErrSoftDeleteUnsupported, desc.Name)
	}

	key, rec, err := s.load(ctx, desc, rawKey)
	if err != nil {
		return err
	}

	rec[desc.SoftDeleteField] = int64(1)
	touch(desc, rec, s.now())

	if err := s.repo.Update(ctx, desc, key, rec); err != nil {
		return err
	}

	slog.InfoContext(ctx, "entity deleted", "table", desc.Name, "key", key.String())
	return nil
}

// load parses the route key and fetches the row it names
func (s *Service) load(ctx context.Context, desc *entities.Descriptor, rawKey []string) (entities.Key, entities.Record, error) {
	if len(rawKey) != len(desc.Key) {
		return nil, nil, fmt.Errorf("%w: %s", ErrKeyShape, desc)
	}

	key, err := desc.ParseKey(rawKey...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s %v", ErrNotFound, desc.Name, rawKey)
	}

	rec, err := s.repo.FindByKey(ctx, desc, key)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("%w: %s %s", ErrNotFound, desc.Name, key)
	}
	return key, rec, nil
}

// touch refreshes the update timestamp, if the table has one
func touch(desc *entities.Descriptor, rec entities.Record, now time.Time) {
	if f := desc.GetField("update_date"); f != nil && f.Managed {
		rec[f.Name] = now
	}
}
