package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/asakaida/commerce-api/internal/apierror"
	"github.com/asakaida/commerce-api/internal/services/metadata"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const routePrefix = "api_operation_"

// RouterConfig configures the API router
type RouterConfig struct {
	// Prefix is the path prefix of every API route (e.g., "/api")
	Prefix string

	// AllowedOrigins enables CORS for the listed origins when non-empty
	AllowedOrigins []string

	// Middleware runs for every matched route (e.g., metrics)
	Middleware []mux.MiddlewareFunc
}

// NewRouter registers the CRUD routes and returns the API handler.
//
// Routes (prefix omitted):
//
//	GET    /{table}                      list
//	GET    /{table}/{id}                 get
//	POST   /{table}                      create
//	PUT    /{table}/{id}                 update
//	DELETE /{table}/{id}                 soft-delete
//	GET    /product_category/{product_id}/{category_id}  (and the other composite-key tables)
//	PUT    /product_category/{product_id}/{category_id}
func NewRouter(h *CRUDHandler, registry *metadata.Registry, cfg RouterConfig) http.Handler {
	root := mux.NewRouter()
	root.NotFoundHandler = http.HandlerFunc(notFound)
	root.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Full templates on the root router: under a prefix subrouter mux
	// drops method mismatches and answers 404 instead of 405
	prefix := strings.TrimRight(cfg.Prefix, "/")
	handle := func(path string, f http.HandlerFunc, method, name string) {
		root.HandleFunc(prefix+path, f).Methods(method).Name(name)
	}
	for _, mw := range cfg.Middleware {
		root.Use(mw)
	}

	// Composite-key routes go first so the table name is matched literally
	for _, table := range registry.Tables() {
		desc, err := registry.Resolve(table)
		if err != nil || !desc.HasCompositeKey() {
			continue
		}

		path := fmt.Sprintf("/{table:%s}", desc.Name)
		for _, field := range desc.Key {
			path += "/{" + field + "}"
		}
		handle(path, h.Get, http.MethodGet, findRouteNameFor(desc.Name))
		handle(path, h.Update, http.MethodPut, routePrefix+"update_"+desc.Name)
	}

	handle("/{table}", h.List, http.MethodGet, routePrefix+"find_all")
	handle("/{table}", h.Create, http.MethodPost, routePrefix+"create")
	handle("/{table}/{id}", h.Get, http.MethodGet, findRouteName)
	handle("/{table}/{id}", h.Update, http.MethodPut, routePrefix+"update")
	handle("/{table}/{id}", h.Delete, http.MethodDelete, routePrefix+"delete")

	h.router = root

	var handler http.Handler = root
	if len(cfg.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Location", "WWW-Authenticate", requestIDHeader},
		}).Handler(handler)
	}

	return RequestID(AccessLog(Recover(handler)))
}

// RouteLabels names the operation and table of a matched request.
// Example: PUT /api/product_category/1/5 -> ("update", "product_category")
func RouteLabels(r *http.Request) (operation, table string) {
	table = mux.Vars(r)["table"]

	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched", ""
	}

	operation = strings.TrimPrefix(route.GetName(), routePrefix)
	operation = strings.TrimSuffix(operation, "_"+table)
	return operation, table
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeAPIError(w, apierror.NotFound("Not Found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeAPIError(w, apierror.MethodNotAllowed("Method Not Allowed"))
}
