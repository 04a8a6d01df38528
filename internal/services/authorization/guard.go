package authorization

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories"
)

// DefaultPublicTables can be read without a credential
var DefaultPublicTables = []string{
	"news",
	"product",
	"product_class",
	"product_image",
	"product_tag",
	"product_category",
	"job",
	"pref",
	"sex",
}

var (
	// bearerCredentialPattern decides whether a request presents a bearer header
	bearerCredentialPattern = regexp.MustCompile(`Bearer (\w+)`)

	// bearerTokenPattern extracts the token from the Authorization header
	bearerTokenPattern = regexp.MustCompile(`(?i)^Bearer\s+(\S+)\s*$`)
)

// Guard authorizes table operations with OAuth2 bearer tokens
type Guard struct {
	tokens       repositories.TokenRepository
	policy       *Policy
	publicTables map[string]bool
	realm        string
	now          func() time.Time
}

// NewGuard creates a new authorization guard
func NewGuard(tokens repositories.TokenRepository, policy *Policy, realm string, publicTables ...string) *Guard {
	if realm == "" {
		realm = "Service"
	}
	if len(publicTables) == 0 {
		publicTables = DefaultPublicTables
	}

	public := make(map[string]bool, len(publicTables))
	for _, t := range publicTables {
		public[t] = true
	}

	return &Guard{
		tokens:       tokens,
		policy:       policy,
		publicTables: public,
		realm:        realm,
		now:          time.Now,
	}
}

// IsPublic reports whether the table can be read without a credential
func (g *Guard) IsPublic(table string) bool {
	return g.publicTables[table]
}

// HasBearerCredential reports whether the request carries a bearer header
func HasBearerCredential(r *http.Request) bool {
	return bearerCredentialPattern.MatchString(r.Header.Get("Authorization"))
}

// Verify checks the request's access token and that it grants every scope
// in requiredScope. The token is taken from the Authorization header, or
// from the access_token query parameter.
func (g *Guard) Verify(ctx context.Context, r *http.Request, requiredScope string) (*entities.AccessToken, error) {
	raw, err := g.extractToken(r)
	if err != nil {
		return nil, err
	}

	token, err := g.tokens.FindAccessToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to verify access token: %w", err)
	}
	if token == nil {
		return nil, g.oauthError(http.StatusUnauthorized, ErrorInvalidToken, "The access token provided is invalid")
	}
	if token.IsExpired(g.now()) {
		return nil, g.oauthError(http.StatusUnauthorized, ErrorInvalidToken, "The access token provided has expired")
	}
	if !token.HasScopes(requiredScope) {
		e := g.oauthError(http.StatusForbidden, ErrorInsufficientScope, "The request requires higher privileges than provided by the access token")
		e.Scope = requiredScope
		return nil, e
	}

	return token, nil
}

// AuthorizeForRead authorizes reading a table.
// Public tables need no credential unless a bearer header is present.
// Principals restricted by the policy get ErrForbidden outside their tables.
func (g *Guard) AuthorizeForRead(ctx context.Context, r *http.Request, desc *entities.Descriptor) (*entities.AccessToken, error) {
	if g.IsPublic(desc.Name) && !HasBearerCredential(r) {
		return nil, nil
	}

	token, err := g.Verify(ctx, r, desc.ReadScope())
	if err != nil {
		return nil, err
	}

	allowed, err := g.policy.Allows(token, desc.Name, "read")
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	return token, nil
}

// AuthorizeForWrite authorizes modifying a table.
// The token must grant both the read and the write scope of the table.
func (g *Guard) AuthorizeForWrite(ctx context.Context, r *http.Request, desc *entities.Descriptor) (*entities.AccessToken, error) {
	return g.Verify(ctx, r, desc.WriteScope())
}

// extractToken returns the raw access token of the request
func (g *Guard) extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	query := r.URL.Query().Get("access_token")

	if header != "" && query != "" {
		return "", g.oauthError(http.StatusBadRequest, ErrorInvalidRequest, "Only one method may be used to authenticate at a time (Auth header, GET or POST)")
	}

	if header != "" {
		m := bearerTokenPattern.FindStringSubmatch(header)
		if m == nil {
			return "", g.oauthError(http.StatusBadRequest, ErrorInvalidRequest, "Malformed auth header")
		}
		return m[1], nil
	}

	if query != "" {
		return query, nil
	}

	return "", g.oauthError(http.StatusUnauthorized, "", "")
}

func (g *Guard) oauthError(status int, code, description string) *OAuthError {
	return &OAuthError{
		Status:      status,
		Code:        code,
		Description: description,
		Realm:       g.realm,
	}
}
