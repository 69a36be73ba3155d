package server

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"jobleads/internal/logging"
)

func startServer(t *testing.T, probes map[string]Probe) (*Server, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := NewServer(probes, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Start(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		srv.Stop()
	})
	return srv, healthpb.NewHealthClient(conn)
}

func TestHealthFollowsProbes(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	srv, client := startServer(t, map[string]Probe{
		"tasks": healthy.Load,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	healthy.Store(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, srv.UpdateHealth())

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	metrics := srv.Metrics()
	check := metrics["/grpc.health.v1.Health/Check"]
	assert.Equal(t, int64(2), check.RequestCount)
	assert.Equal(t, int64(2), check.SuccessCount)
}

func TestHealthUnknownService(t *testing.T) {
	_, client := startServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "other"})
	assert.Error(t, err)
}
