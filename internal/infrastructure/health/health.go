// Package health serves the gRPC health checking protocol for the API.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the REST API
const ServiceName = "commerce.api"

// Checker checks a dependency the API cannot serve without
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Server reports SERVING while every checker succeeds
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checker    Checker
	interval   time.Duration
	timeout    time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewServer creates a health server calling checker every interval
func NewServer(checker Checker, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		checker:    checker,
		interval:   interval,
		timeout:    interval / 2,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Serve checks once, starts the check loop and serves on lis until Stop
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.check(ctx)
	go s.loop(ctx)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("health server error: %w", err)
	}
	return nil
}

// Stop marks the API as not serving and stops the gRPC server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		close(s.stopCh)
		s.grpcServer.GracefulStop()
	})
}

// Health returns the underlying health service (used by tests)
func (s *Server) Health() healthpb.HealthServer {
	return s.health
}

func (s *Server) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check runs the checker and publishes the resulting status
func (s *Server) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.HealthCheck(checkCtx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
