package api

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/followledger/followledger/internal/config"
)

func startBufServer(t *testing.T, source ReportSource) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := newServer(config.ServerConfig{GracefulTimeout: time.Second}, lis, NewReportHandler(nil, source))
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServerRoundTrip(t *testing.T) {
	conn := startBufServer(t, &sourceStub{report: sampleReport()})
	client := NewReportServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Call(ctx, MethodGetNotReciprocated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AsMap()["subject"] != "carma" {
		t.Fatalf("unexpected response: %v", resp.AsMap())
	}

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ReportServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected serving, got %v", health.GetStatus())
	}
}

func TestServerStatusCodes(t *testing.T) {
	conn := startBufServer(t, &sourceStub{})
	client := NewReportServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Call(ctx, MethodGetLedger)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}

	_, err = client.Call(ctx, "NoSuchMethod")
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected unimplemented, got %v", err)
	}
}

func TestServerShutdownStopsServing(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server := newServer(config.ServerConfig{GracefulTimeout: 2 * time.Second}, lis, NewReportHandler(nil, &sourceStub{}))
	if got := server.GracefulTimeout(); got != 2*time.Second {
		t.Fatalf("unexpected graceful timeout %v", got)
	}

	served := make(chan error, 1)
	go func() { served <- server.Start() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait until the server is accepting before shutting it down.
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer checkCancel()
	if _, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{}); err != nil {
		t.Fatalf("health check: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(ctx)

	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after shutdown")
	}
}
