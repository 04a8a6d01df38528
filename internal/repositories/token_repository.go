package repositories

import (
	"context"

	"github.com/asakaida/commerce-api/internal/entities"
)

// TokenRepository defines the interface for issued OAuth2 grant lookups.
// Tokens are issued by the authorization server; this API only reads them.
type TokenRepository interface {
	// FindAccessToken retrieves the grant of an access token
	// Returns nil and no error when the token is unknown
	FindAccessToken(ctx context.Context, token string) (*entities.AccessToken, error)
}
