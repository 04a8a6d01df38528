package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/asakaida/commerce-api/pkg/cache"
)

// testExporter is a shared exporter instance for all tests to avoid
// duplicate Prometheus metric registration errors.
var (
	testExporter     *PrometheusExporter
	testExporterOnce sync.Once
)

func getTestExporter(collector *Collector) *PrometheusExporter {
	testExporterOnce.Do(func() {
		testExporter = NewPrometheusExporter(collector)
	})
	return testExporter
}

func fixedLabeler(operation, table string) Labeler {
	return func(r *http.Request) (string, string) {
		return operation, table
	}
}

func serve(t *testing.T, collector *Collector, exporter *PrometheusExporter, labeler Labeler, status int) {
	t.Helper()

	handler := HTTPMiddleware(collector, exporter, labeler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/product", nil))
	if rec.Code != status {
		t.Fatalf("expected status %d to pass through, got %d", status, rec.Code)
	}
}

func TestHTTPMiddleware_RecordsRequest(t *testing.T) {
	collector := NewCollector()

	serve(t, collector, nil, fixedLabeler("list", "product"), http.StatusOK)
	serve(t, collector, nil, fixedLabeler("list", "product"), http.StatusOK)

	apiMetrics := collector.GetAPIMetrics()
	if count := apiMetrics.RequestCounts["list product"]; count != 2 {
		t.Errorf("expected request count 2 for list product, got %d", count)
	}
	if _, ok := apiMetrics.TotalDurationSeconds["list product"]; !ok {
		t.Error("expected duration to be recorded for list product")
	}
	if count := apiMetrics.ErrorCounts["list product"]; count != 0 {
		t.Errorf("expected no errors, got %d", count)
	}
}

func TestHTTPMiddleware_RecordsError(t *testing.T) {
	collector := NewCollector()

	serve(t, collector, nil, fixedLabeler("get", "customer"), http.StatusUnauthorized)
	serve(t, collector, nil, fixedLabeler("delete", "pref"), http.StatusMethodNotAllowed)

	apiMetrics := collector.GetAPIMetrics()
	if count := apiMetrics.ErrorCounts["get customer"]; count != 1 {
		t.Errorf("expected error count 1 for get customer, got %d", count)
	}
	if count := apiMetrics.ErrorCounts["delete pref"]; count != 1 {
		t.Errorf("expected error count 1 for delete pref, got %d", count)
	}
}

func TestHTTPMiddleware_WithExporter(t *testing.T) {
	collector := NewCollector()
	exporter := getTestExporter(collector)

	// Should not panic with exporter
	serve(t, collector, exporter, fixedLabeler("create", "product"), http.StatusCreated)
	serve(t, collector, exporter, fixedLabeler("create", "product"), http.StatusBadRequest)
	exporter.Update()
}

// mockCache is a mock implementation of cache.Cache
type mockCache struct {
	cache.Cache
	metricsFunc func() *cache.Metrics
}

func (m *mockCache) Metrics() *cache.Metrics {
	return m.metricsFunc()
}

func TestCollector_GetCacheMetrics(t *testing.T) {
	collector := NewCollector()

	if got := collector.GetCacheMetrics(); got.Hits != 0 || got.KeysCurrent != 0 {
		t.Errorf("expected empty metrics without cache, got %+v", got)
	}

	collector.SetCache(&mockCache{metricsFunc: func() *cache.Metrics {
		return &cache.Metrics{Hits: 3, Misses: 1, Entries: 2, Evictions: 5}
	}})

	got := collector.GetCacheMetrics()
	if got.Hits != 3 || got.Misses != 1 || got.KeysCurrent != 2 || got.Evictions != 5 {
		t.Errorf("unexpected cache metrics: %+v", got)
	}
	if got.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %f", got.HitRate)
	}

	_ = context.Background()
}

func TestKey(t *testing.T) {
	if got := Key("list", "product"); got != "list product" {
		t.Errorf("Key() = %q", got)
	}
	if got := Key("not_found", ""); got != "not_found" {
		t.Errorf("Key() = %q", got)
	}
}
