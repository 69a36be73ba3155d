// Package server exposes the standard gRPC health service for the
// enrichment service, driven by the browser session and task manager state.
package server

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"jobleads/internal/grpc/interceptors"
	"jobleads/internal/logging"
)

// ServiceName is the health service name reported next to the overall status
const ServiceName = "jobleads.Enrichment"

// Probe reports whether a dependency can take work
type Probe func() bool

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	metrics    *interceptors.MetricsCollector
	probes     map[string]Probe
	interval   time.Duration
	logger     logging.Logger
}

// NewServer builds the gRPC server. Every probe must pass for the service to
// report SERVING.
func NewServer(probes map[string]Probe, logger logging.Logger) *Server {
	logger = logger.WithField("component", "grpc")
	metrics := interceptors.NewMetricsCollector()

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(logger),
			interceptors.LoggingInterceptor(logger),
			interceptors.MetricsInterceptor(metrics),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(logger),
			interceptors.StreamLoggingInterceptor(logger),
			interceptors.StreamMetricsInterceptor(metrics),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	s := &Server{
		grpcServer: grpcServer,
		health:     hs,
		metrics:    metrics,
		probes:     probes,
		interval:   10 * time.Second,
		logger:     logger,
	}
	s.UpdateHealth()
	return s
}

// UpdateHealth evaluates the probes and publishes the result
func (s *Server) UpdateHealth() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, probe := range s.probes {
		if !probe() {
			s.logger.Debug("Health probe failing", map[string]interface{}{"probe": name})
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Start serves on lis and refreshes the health status until ctx ends
func (s *Server) Start(ctx context.Context, lis net.Listener) error {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.UpdateHealth()
			}
		}
	}()
	s.metrics.StartMetricsReporting(ctx, 10*time.Minute, s.logger)

	s.logger.Info("Starting gRPC server", map[string]interface{}{"address": lis.Addr().String()})
	return s.grpcServer.Serve(lis)
}

// Stop marks the service NOT_SERVING and drains in-flight calls
func (s *Server) Stop() {
	s.logger.Info("Shutting down gRPC server", map[string]interface{}{})
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Metrics returns the per-method call counters
func (s *Server) Metrics() map[string]interceptors.MetricsData {
	return s.metrics.Snapshot()
}
