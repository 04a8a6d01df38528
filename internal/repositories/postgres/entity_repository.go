package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
	"github.com/lib/pq"
)

// PostgresEntityRepository implements EntityRepository using PostgreSQL
type PostgresEntityRepository struct {
	db *sql.DB
}

// NewPostgresEntityRepository creates a new PostgreSQL entity repository
func NewPostgresEntityRepository(db *sql.DB) repositories.EntityRepository {
	return &PostgresEntityRepository{db: db}
}

// FindAll retrieves every row of the table, ordered by key
func (r *PostgresEntityRepository) FindAll(ctx context.Context, desc *entities.Descriptor) ([]entities.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		selectList(desc), pq.QuoteIdentifier(desc.SQLTable), orderList(desc))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", desc.Name, err)
	}
	defer rows.Close()

	records := make([]entities.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, desc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", desc.Name, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", desc.Name, err)
	}

	return records, nil
}

// FindByKey retrieves the row with the given key
func (r *PostgresEntityRepository) FindByKey(ctx context.Context, desc *entities.Descriptor, key entities.Key) (entities.Record, error) {
	where, args, err := keyClause(desc, key, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		selectList(desc), pq.QuoteIdentifier(desc.SQLTable), where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", desc.Name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to find %s: %w", desc.Name, err)
		}
		return nil, nil
	}

	rec, err := scanRecord(rows, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", desc.Name, err)
	}
	return rec, nil
}

// FindByKeys retrieves the rows with any of the given keys in one query.
// Only single-column keys are supported; references never target composite keys.
func (r *PostgresEntityRepository) FindByKeys(ctx context.Context, desc *entities.Descriptor, keys []entities.Key) ([]entities.Record, error) {
	keyFields := desc.KeyFields()
	if len(keyFields) != 1 {
		return nil, fmt.Errorf("%s: batch lookup needs a single-column key", desc.Name)
	}
	if len(keys) == 0 {
		return []entities.Record{}, nil
	}

	values, err := keyArray(keyFields[0], keys)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", desc.Name, err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1)",
		selectList(desc), pq.QuoteIdentifier(desc.SQLTable), pq.QuoteIdentifier(keyFields[0].Column))

	rows, err := r.db.QueryContext(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", desc.Name, err)
	}
	defer rows.Close()

	records := make([]entities.Record, 0, len(keys))
	for rows.Next() {
		rec, err := scanRecord(rows, desc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", desc.Name, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", desc.Name, err)
	}

	return records, nil
}

// Insert persists a new row and fills generated fields on rec
func (r *PostgresEntityRepository) Insert(ctx context.Context, desc *entities.Descriptor, rec entities.Record) error {
	var (
		columns      []string
		placeholders []string
		args         []interface{}
		generated    []*entities.Field
	)
	for _, f := range desc.Fields {
		if f.Generated {
			generated = append(generated, f)
			continue
		}
		args = append(args, rec[f.Name])
		columns = append(columns, pq.QuoteIdentifier(f.Column))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(desc.SQLTable), strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if len(generated) == 0 {
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert %s: %w", desc.Name, err)
		}
		return nil
	}

	returning := make([]string, len(generated))
	dest := make([]interface{}, len(generated))
	for i, f := range generated {
		returning[i] = pq.QuoteIdentifier(f.Column)
		dest[i] = scanTarget(f.Kind)
	}
	query += " RETURNING " + strings.Join(returning, ", ")

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", desc.Name, err)
	}
	for i, f := range generated {
		rec[f.Name] = scannedValue(dest[i])
	}

	return nil
}

// Update overwrites the row identified by key with the values of rec
func (r *PostgresEntityRepository) Update(ctx context.Context, desc *entities.Descriptor, key entities.Key, rec entities.Record) error {
	var (
		assignments []string
		args        []interface{}
	)
	for _, f := range desc.Fields {
		if f.Generated {
			continue
		}
		args = append(args, rec[f.Name])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Column), len(args)))
	}

	where, keyArgs, err := keyClause(desc, key, len(args)+1)
	if err != nil {
		return err
	}
	args = append(args, keyArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		pq.QuoteIdentifier(desc.SQLTable), strings.Join(assignments, ", "), where)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", desc.Name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", desc.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update %s: no row with key %s", desc.Name, key)
	}

	return nil
}

// keyArray converts single-column keys to a PostgreSQL array parameter
func keyArray(f *entities.Field, keys []entities.Key) (interface{}, error) {
	if f.Kind == entities.KindInt {
		ids := make(pq.Int64Array, len(keys))
		for i, key := range keys {
			id, ok := key[0].(int64)
			if !ok {
				return nil, fmt.Errorf("%s key %v is not an integer", f.Name, key[0])
			}
			ids[i] = id
		}
		return ids, nil
	}

	values := make(pq.StringArray, len(keys))
	for i, key := range keys {
		values[i] = fmt.Sprint(key[0])
	}
	return values, nil
}

// selectList returns the quoted column list in field order
func selectList(desc *entities.Descriptor) string {
	cols := make([]string, len(desc.Fields))
	for i, f := range desc.Fields {
		cols[i] = pq.QuoteIdentifier(f.Column)
	}
	return strings.Join(cols, ", ")
}

// orderList returns the quoted key columns for ORDER BY
func orderList(desc *entities.Descriptor) string {
	keyFields := desc.KeyFields()
	cols := make([]string, len(keyFields))
	for i, f := range keyFields {
		cols[i] = pq.QuoteIdentifier(f.Column)
	}
	return strings.Join(cols, ", ")
}

// keyClause builds "k1 = $n AND k2 = $n+1" for the descriptor's key
func keyClause(desc *entities.Descriptor, key entities.Key, start int) (string, []interface{}, error) {
	keyFields := desc.KeyFields()
	if len(key) != len(keyFields) {
		return "", nil, fmt.Errorf("%s is keyed by %d fields, got %d", desc.Name, len(keyFields), len(key))
	}

	conds := make([]string, len(keyFields))
	args := make([]interface{}, len(keyFields))
	for i, f := range keyFields {
		conds[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Column), start+i)
		args[i] = key[i]
	}
	return strings.Join(conds, " AND "), args, nil
}

// scanRecord scans the current row into a record keyed by field name
func scanRecord(rows *sql.Rows, desc *entities.Descriptor) (entities.Record, error) {
	dest := make([]interface{}, len(desc.Fields))
	for i, f := range desc.Fields {
		dest[i] = scanTarget(f.Kind)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	rec := make(entities.Record, len(desc.Fields))
	for i, f := range desc.Fields {
		rec[f.Name] = scannedValue(dest[i])
	}
	return rec, nil
}

// scanTarget returns a nullable scan destination for the kind
func scanTarget(kind entities.Kind) interface{} {
	switch kind {
	case entities.KindInt:
		return &sql.NullInt64{}
	case entities.KindFloat:
		return &sql.NullFloat64{}
	case entities.KindBool:
		return &sql.NullBool{}
	case entities.KindTime:
		return &sql.NullTime{}
	default:
		return &sql.NullString{}
	}
}

// scannedValue unwraps a scan destination into a record value
func scannedValue(dest interface{}) interface{} {
	switch v := dest.(type) {
	case *sql.NullInt64:
		if v.Valid {
			return v.Int64
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64
		}
	case *sql.NullBool:
		if v.Valid {
			return v.Bool
		}
	case *sql.NullTime:
		if v.Valid {
			return v.Time.In(time.Local)
		}
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
	}
	return nil
}
