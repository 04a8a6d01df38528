package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asakaida/commerce-api/internal/handlers"
	"github.com/asakaida/commerce-api/internal/infrastructure/cache"
	"github.com/asakaida/commerce-api/internal/infrastructure/config"
	"github.com/asakaida/commerce-api/internal/repositories"
	"github.com/asakaida/commerce-api/internal/repositories/postgres"
	"github.com/asakaida/commerce-api/internal/services/authorization"
	"github.com/asakaida/commerce-api/internal/services/crud"
	"github.com/asakaida/commerce-api/internal/services/metadata"
	"github.com/asakaida/commerce-api/internal/services/serializer"
	"github.com/asakaida/commerce-api/pkg/cache/shardcache"
	"github.com/goccy/go-json"
)

// E2ETestServer is the full HTTP API backed by the test database
type E2ETestServer struct {
	Server *httptest.Server
	DB     *sql.DB

	cleanup []func()
}

// E2EOption customizes the test server
type E2EOption func(t *testing.T, s *E2ETestServer, tokens repositories.TokenRepository) repositories.TokenRepository

// WithTokenCache serves access tokens through the cache, invalidated by NOTIFY
func WithTokenCache() E2EOption {
	return func(t *testing.T, s *E2ETestServer, tokens repositories.TokenRepository) repositories.TokenRepository {
		t.Helper()

		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		tokenCache, err := shardcache.New(ctx, &shardcache.Config{TTL: time.Minute, Shards: 16, MaxMemoryMB: 8})
		if err != nil {
			cancel()
			t.Fatalf("failed to create cache: %v", err)
		}

		cached := cache.NewCachedTokenRepository(tokens, tokenCache)
		invalidator := cache.NewTokenInvalidator(cached, cfg.Database.ConnectionString())
		if err := invalidator.Start(ctx); err != nil {
			cancel()
			t.Fatalf("failed to start invalidator: %v", err)
		}

		s.cleanup = append(s.cleanup, func() {
			invalidator.Stop()
			tokenCache.Close()
			cancel()
		})
		return cached
	}
}

// SetupE2ETest sets up an E2E test environment.
// The test is skipped when no test database is configured.
func SetupE2ETest(t *testing.T, opts ...E2EOption) *E2ETestServer {
	t.Helper()

	db := postgres.SetupTestDB(t)
	s := &E2ETestServer{DB: db}

	registry, err := metadata.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	entityRepo := postgres.NewPostgresEntityRepository(db)
	tokens := postgres.NewPostgresTokenRepository(db)
	for _, opt := range opts {
		tokens = opt(t, s, tokens)
	}

	policy, err := authorization.NewDefaultPolicy()
	if err != nil {
		t.Fatalf("failed to create policy: %v", err)
	}

	guard := authorization.NewGuard(tokens, policy, "")
	service := crud.NewService(entityRepo, serializer.NewSerializer(registry, entityRepo))
	h := handlers.NewCRUDHandler(registry, guard, service)

	s.Server = httptest.NewServer(handlers.NewRouter(h, registry, handlers.RouterConfig{Prefix: "/api"}))
	return s
}

// Teardown cleans up the E2E test environment
func (s *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if s.Server != nil {
		s.Server.Close()
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	if s.DB != nil {
		postgres.CleanupTestDB(t, s.DB)
	}
}

// IssueToken inserts an OAuth2 client and access token.
// Exactly one of memberID and customerID should be non-zero.
func (s *E2ETestServer) IssueToken(t *testing.T, token, scope string, memberID, customerID int64) {
	t.Helper()

	var member, customer interface{}
	if memberID != 0 {
		member = memberID
	}
	if customerID != 0 {
		customer = customerID
	}

	var clientID int64
	err := s.DB.QueryRow(
		`INSERT INTO plg_oauth2_client (client_identifier, member_id, customer_id) VALUES ($1, $2, $3) RETURNING id`,
		"client-"+token, member, customer,
	).Scan(&clientID)
	if err != nil {
		t.Fatalf("failed to insert client: %v", err)
	}

	_, err = s.DB.Exec(
		`INSERT INTO plg_oauth2_access_token (client_id, token, expires, scope) VALUES ($1, $2, $3, $4)`,
		clientID, token, time.Now().Add(time.Hour), scope,
	)
	if err != nil {
		t.Fatalf("failed to insert access token: %v", err)
	}
}

// Do sends a request to the API with an optional bearer token and JSON body
func (s *E2ETestServer) Do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, s.Server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response of %s %s: %v", method, path, err)
		}
	}
	return resp, decoded
}

// Eventually polls cond until it holds or the timeout expires
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cond()
}
