package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
)

// PostgresTokenRepository implements TokenRepository using PostgreSQL
type PostgresTokenRepository struct {
	db *sql.DB
}

// NewPostgresTokenRepository creates a new PostgreSQL token repository
func NewPostgresTokenRepository(db *sql.DB) repositories.TokenRepository {
	return &PostgresTokenRepository{db: db}
}

// FindAccessToken retrieves the grant of an access token with its owning client
func (r *PostgresTokenRepository) FindAccessToken(ctx context.Context, token string) (*entities.AccessToken, error) {
	query := `
		SELECT t.token, c.id, c.client_identifier, t.user_id, c.member_id, c.customer_id, t.scope, t.expires
		FROM plg_oauth2_access_token t
		INNER JOIN plg_oauth2_client c ON c.id = t.client_id
		WHERE t.token = $1
	`

	var (
		accessToken entities.AccessToken
		userID      sql.NullString
		memberID    sql.NullInt64
		customerID  sql.NullInt64
		scope       sql.NullString
		expires     sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&accessToken.Token,
		&accessToken.ClientID,
		&accessToken.ClientIdentifier,
		&userID,
		&memberID,
		&customerID,
		&scope,
		&expires,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}

	accessToken.UserID = userID.String
	accessToken.Scopes = entities.ParseScope(scope.String)
	if memberID.Valid {
		accessToken.MemberID = &memberID.Int64
	}
	if customerID.Valid {
		accessToken.CustomerID = &customerID.Int64
	}
	if expires.Valid {
		accessToken.ExpiresAt = expires.Time
	}

	return &accessToken, nil
}
