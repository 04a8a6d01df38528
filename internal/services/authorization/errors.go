package authorization

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrForbidden is returned when a verified principal may not access a table
var ErrForbidden = errors.New("access forbidden")

// OAuth2 bearer token error codes (RFC 6750 section 3.1)
const (
	ErrorInvalidRequest    = "invalid_request"
	ErrorInvalidToken      = "invalid_token"
	ErrorInsufficientScope = "insufficient_scope"
)

// OAuthError is a failed bearer token verification
type OAuthError struct {
	Status      int
	Code        string // Empty when the request carried no credential
	Description string
	Scope       string // Required scope, set for insufficient_scope
	Realm       string
}

// Error implements error
func (e *OAuthError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("oauth2: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("oauth2: %s: %s", e.Code, e.Description)
}

// WWWAuthenticate returns the challenge for the WWW-Authenticate header
// Example: Bearer realm="Service", error="invalid_token", error_description="..."
func (e *OAuthError) WWWAuthenticate() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bearer realm=%q", e.Realm)
	if e.Code != "" {
		fmt.Fprintf(&b, ", error=%q", e.Code)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, ", error_description=%q", e.Description)
	}
	if e.Scope != "" {
		fmt.Fprintf(&b, ", scope=%q", e.Scope)
	}
	return b.String()
}

// Body returns the JSON response body
func (e *OAuthError) Body() map[string]string {
	body := make(map[string]string, 2)
	if e.Code != "" {
		body["error"] = e.Code
	}
	if e.Description != "" {
		body["error_description"] = e.Description
	}
	return body
}
