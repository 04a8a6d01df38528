package memory

import (
	"context"
	"sync"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
)

// TokenRepository is an in-process TokenRepository
type TokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*entities.AccessToken
}

// NewTokenRepository creates an empty in-memory token repository
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]*entities.AccessToken)}
}

var _ repositories.TokenRepository = (*TokenRepository)(nil)

// Put stores or replaces a grant
func (r *TokenRepository) Put(token *entities.AccessToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *token
	r.tokens[token.Token] = &copied
}

// Revoke removes a grant
func (r *TokenRepository) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
}

// FindAccessToken retrieves the grant of an access token
func (r *TokenRepository) FindAccessToken(ctx context.Context, token string) (*entities.AccessToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}
