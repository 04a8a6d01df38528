package repositories

import (
	"context"

	"github.com/asakaida/commerce-api/internal/entities"
)

// EntityRepository defines the interface for generic entity data access.
// The descriptor determines the table, columns and key of every call.
type EntityRepository interface {
	// FindAll retrieves every row of the table, ordered by key
	FindAll(ctx context.Context, desc *entities.Descriptor) ([]entities.Record, error)

	// FindByKey retrieves the row with the given key
	// Returns nil and no error when no row matches
	FindByKey(ctx context.Context, desc *entities.Descriptor, key entities.Key) (entities.Record, error)

	// FindByKeys retrieves the rows with any of the given keys, in no
	// particular order. Keys without a row are skipped.
	FindByKeys(ctx context.Context, desc *entities.Descriptor, keys []entities.Key) ([]entities.Record, error)

	// Insert persists a new row and fills generated fields on rec
	Insert(ctx context.Context, desc *entities.Descriptor, rec entities.Record) error

	// Update overwrites the row identified by key with the values of rec
	Update(ctx context.Context, desc *entities.Descriptor, key entities.Key, rec entities.Record) error
}
