package entities

import (
	"strings"
	"time"
)

// PrincipalKind is the identity class owning an OAuth2 client
type PrincipalKind string

const (
	PrincipalMember   PrincipalKind = "member"   // Staff / administrator
	PrincipalCustomer PrincipalKind = "customer" // Storefront customer
)

// AccessToken represents an issued OAuth2 access token grant
// Example: token "abc" issued to client "app" with scope "product_read order_read"
type AccessToken struct {
	Token            string
	ClientID         int64  // Internal client id
	ClientIdentifier string // OAuth2 client_id
	UserID           string // Resource owner identifier (may be empty for client credentials)
	MemberID         *int64 // Set when the client belongs to a member
	CustomerID       *int64 // Set when the client belongs to a customer
	Scopes           []string
	ExpiresAt        time.Time
}

// Kind returns the identity class of the token's client
func (t *AccessToken) Kind() PrincipalKind {
	if t.CustomerID != nil {
		return PrincipalCustomer
	}
	return PrincipalMember
}

// IsExpired reports whether the token is expired at the given time
func (t *AccessToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// HasScopes reports whether every scope in the space-delimited required
// string has been granted
func (t *AccessToken) HasScopes(required string) bool {
	granted := make(map[string]struct{}, len(t.Scopes))
	for _, s := range t.Scopes {
		granted[s] = struct{}{}
	}
	for _, s := range ParseScope(required) {
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}

// ParseScope splits a space-delimited scope string, dropping empty entries
func ParseScope(scope string) []string {
	return strings.Fields(scope)
}
