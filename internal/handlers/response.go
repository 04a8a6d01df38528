package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/asakaida/commerce-api/internal/apierror"
	"github.com/asakaida/commerce-api/internal/services/authorization"
	"github.com/asakaida/commerce-api/internal/services/crud"
	"github.com/asakaida/commerce-api/internal/services/metadata"
	"github.com/goccy/go-json"
)

// errorItem is one entry of the errors envelope
type errorItem struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorEnvelope is the body of every non-OAuth2 failure
type errorEnvelope struct {
	Errors []errorItem `json:"errors"`
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeEnvelope writes {"<table>": payload} with status 200
func writeEnvelope(w http.ResponseWriter, table string, payload interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{table: payload})
}

// writeAPIError writes the errors envelope for e
func writeAPIError(w http.ResponseWriter, e *apierror.Error) {
	writeJSON(w, e.Code(), errorEnvelope{
		Errors: []errorItem{{Code: e.Code(), Message: e.Message()}},
	})
}

// writeOAuthError writes an RFC 6750 bearer token error
func writeOAuthError(w http.ResponseWriter, e *authorization.OAuthError) {
	w.Header().Set("WWW-Authenticate", e.WWWAuthenticate())
	writeJSON(w, e.Status, e.Body())
}

// writeError maps an operation error to its response
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var oauthErr *authorization.OAuthError
	if errors.As(err, &oauthErr) {
		writeOAuthError(w, oauthErr)
		return
	}

	writeAPIError(w, toAPIError(err))

	slog.InfoContext(r.Context(), "request failed", "error", err)
}

// toAPIError classifies err by the HTTP status it is reported with
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, metadata.ErrTableNotFound):
		return apierror.NotFound("Not Found")
	case errors.Is(err, crud.ErrKeyShape):
		return apierror.NotFound("Not Found")
	case errors.Is(err, authorization.ErrForbidden):
		return apierror.Forbidden("Access Forbidden")
	case errors.Is(err, crud.ErrSoftDeleteUnsupported):
		return apierror.MethodNotAllowed("Method Not Allowed")
	default:
		return apierror.BadRequest(err)
	}
}
