package metrics

import (
	"net/http"
	"time"
)

// Labeler names the operation and table a request addresses
type Labeler func(r *http.Request) (operation, table string)

// statusRecorder captures the status code written by the handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware returns middleware that records metrics for each request.
func HTTPMiddleware(collector *Collector, exporter *PrometheusExporter, labeler Labeler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			operation, table := labeler(r)
			key := Key(operation, table)

			// Record request
			collector.RecordRequest(key)

			// Call handler
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Record duration
			duration := time.Since(start).Seconds()
			collector.RecordDuration(key, duration)
			if exporter != nil {
				exporter.RecordRequest(operation, table, rec.status)
				exporter.RecordDuration(operation, table, duration)
			}

			// Record error if any
			if rec.status >= http.StatusBadRequest {
				collector.RecordError(key)
				if exporter != nil {
					exporter.RecordError(operation, table)
				}
			}
		})
	}
}
