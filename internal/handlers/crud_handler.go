package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/services/authorization"
	"github.com/asakaida/commerce-api/internal/services/crud"
	"github.com/asakaida/commerce-api/internal/services/serializer"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

const (
	// findRouteName names the generic get-by-id route
	findRouteName = "api_operation_find"

	// maxBodyBytes bounds the size of a submitted entity
	maxBodyBytes = 1 << 20
)

// findRouteNameFor names the get route of a composite-key table
// Example: api_operation_find_product_category
func findRouteNameFor(table string) string {
	return findRouteName + "_" + table
}

// CRUDHandler serves the generic entity operations
type CRUDHandler struct {
	resolver serializer.Resolver
	guard    *authorization.Guard
	service  *crud.Service
	router   *mux.Router
}

// NewCRUDHandler creates a new CRUD handler
func NewCRUDHandler(resolver serializer.Resolver, guard *authorization.Guard, service *crud.Service) *CRUDHandler {
	return &CRUDHandler{
		resolver: resolver,
		guard:    guard,
		service:  service,
	}
}

// List handles GET /{table}
func (h *CRUDHandler) List(w http.ResponseWriter, r *http.Request) {
	desc, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.guard.AuthorizeForRead(r.Context(), r, desc); err != nil {
		writeError(w, r, err)
		return
	}

	objs, err := h.service.List(r.Context(), desc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeEnvelope(w, desc.Name, objs)
}

// Get handles GET /{table}/{id} and the composite-key get routes
func (h *CRUDHandler) Get(w http.ResponseWriter, r *http.Request) {
	desc, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.guard.AuthorizeForRead(r.Context(), r, desc); err != nil {
		writeError(w, r, err)
		return
	}

	obj, err := h.service.Get(r.Context(), desc, rawKey(r, desc)...)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A miss is reported as {"<table>": null}
	writeEnvelope(w, desc.Name, obj)
}

// Create handles POST /{table}
func (h *CRUDHandler) Create(w http.ResponseWriter, r *http.Request) {
	desc, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.guard.AuthorizeForWrite(r.Context(), r, desc); err != nil {
		writeError(w, r, err)
		return
	}

	input, err := decodeInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key, err := h.service.Create(r.Context(), desc, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	location, err := h.locationOf(desc, key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusCreated)
}

// Update handles PUT /{table}/{id} and the composite-key update routes
func (h *CRUDHandler) Update(w http.ResponseWriter, r *http.Request) {
	desc, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.guard.AuthorizeForWrite(r.Context(), r, desc); err != nil {
		writeError(w, r, err)
		return
	}

	input, err := decodeInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Update(r.Context(), desc, rawKey(r, desc), input); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /{table}/{id}
func (h *CRUDHandler) Delete(w http.ResponseWriter, r *http.Request) {
	desc, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.guard.AuthorizeForWrite(r.Context(), r, desc); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), desc, rawKey(r, desc)); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolve returns the descriptor of the route's table
func (h *CRUDHandler) resolve(r *http.Request) (*entities.Descriptor, error) {
	return h.resolver.Resolve(mux.Vars(r)["table"])
}

// locationOf builds the canonical get URL of a created row
func (h *CRUDHandler) locationOf(desc *entities.Descriptor, key entities.Key) (string, error) {
	name := findRouteName
	pairs := []string{"table", desc.Name}
	if desc.HasCompositeKey() {
		name = findRouteNameFor(desc.Name)
		for i, field := range desc.Key {
			pairs = append(pairs, field, fmt.Sprint(key[i]))
		}
	} else {
		pairs = append(pairs, "id", fmt.Sprint(key[0]))
	}

	route := h.router.Get(name)
	if route == nil {
		return "", fmt.Errorf("route %s is not registered", name)
	}

	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("failed to build location: %w", err)
	}
	return u.String(), nil
}

// rawKey returns the route's key segments in descriptor key order
func rawKey(r *http.Request, desc *entities.Descriptor) []string {
	vars := mux.Vars(r)
	if id, ok := vars["id"]; ok {
		return []string{id}
	}

	key := make([]string, 0, len(desc.Key))
	for _, field := range desc.Key {
		if v, ok := vars[field]; ok {
			key = append(key, v)
		}
	}
	return key
}

// decodeInput reads the submitted fields from a JSON or form-encoded body
func decodeInput(r *http.Request) (map[string]interface{}, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && err != http.ErrNotMultipart {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		input := make(map[string]interface{}, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				input[k] = v[0]
			}
		}
		return input, nil
	}

	input := make(map[string]interface{})
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty body submits no fields
			return input, nil
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return input, nil
}
