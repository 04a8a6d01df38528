package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
	"github.com/asakaida/commerce-api/pkg/cache"
	"github.com/goccy/go-json"
)

const tokenKeyPrefix = "oauth2_access_token:"

// cachedToken is the serialized form of an access token grant
type cachedToken struct {
	Token            string    `json:"token"`
	ClientID         int64     `json:"client_id"`
	ClientIdentifier string    `json:"client_identifier"`
	UserID           string    `json:"user_id,omitempty"`
	MemberID         *int64    `json:"member_id,omitempty"`
	CustomerID       *int64    `json:"customer_id,omitempty"`
	Scopes           []string  `json:"scopes"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// CachedTokenRepository decorates a TokenRepository with a grant cache.
// Only known tokens are cached; unknown tokens always reach the database
// so newly issued grants are visible immediately.
type CachedTokenRepository struct {
	next  repositories.TokenRepository
	cache cache.Cache
}

// NewCachedTokenRepository creates a caching TokenRepository
func NewCachedTokenRepository(next repositories.TokenRepository, c cache.Cache) *CachedTokenRepository {
	return &CachedTokenRepository{next: next, cache: c}
}

var _ repositories.TokenRepository = (*CachedTokenRepository)(nil)

// FindAccessToken returns the cached grant or loads it from the next repository
func (r *CachedTokenRepository) FindAccessToken(ctx context.Context, token string) (*entities.AccessToken, error) {
	key := tokenKeyPrefix + token

	data, err := r.cache.Get(ctx, key)
	if err == nil {
		var ct cachedToken
		if err := json.Unmarshal(data, &ct); err == nil {
			return ct.toEntity(), nil
		}
		slog.WarnContext(ctx, "dropping undecodable cached token")
		_ = r.cache.Delete(ctx, key)
	} else if !errors.Is(err, cache.ErrNotFound) {
		slog.WarnContext(ctx, "token cache lookup failed", "error", err)
	}

	accessToken, err := r.next.FindAccessToken(ctx, token)
	if err != nil || accessToken == nil {
		return accessToken, err
	}

	data, err = json.Marshal(fromEntity(accessToken))
	if err != nil {
		return nil, fmt.Errorf("failed to encode access token: %w", err)
	}
	if err := r.cache.Set(ctx, key, data); err != nil {
		slog.WarnContext(ctx, "failed to cache access token", "error", err)
	}

	return accessToken, nil
}

// Invalidate drops one token from the cache
func (r *CachedTokenRepository) Invalidate(ctx context.Context, token string) error {
	return r.cache.Delete(ctx, tokenKeyPrefix+token)
}

// InvalidateAll drops every cached token
func (r *CachedTokenRepository) InvalidateAll(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func fromEntity(t *entities.AccessToken) *cachedToken {
	return &cachedToken{
		Token:            t.Token,
		ClientID:         t.ClientID,
		ClientIdentifier: t.ClientIdentifier,
		UserID:           t.UserID,
		MemberID:         t.MemberID,
		CustomerID:       t.CustomerID,
		Scopes:           t.Scopes,
		ExpiresAt:        t.ExpiresAt,
	}
}

func (c *cachedToken) toEntity() *entities.AccessToken {
	return &entities.AccessToken{
		Token:            c.Token,
		ClientID:         c.ClientID,
		ClientIdentifier: c.ClientIdentifier,
		UserID:           c.UserID,
		MemberID:         c.MemberID,
		CustomerID:       c.CustomerID,
		Scopes:           c.Scopes,
		ExpiresAt:        c.ExpiresAt,
	}
}
