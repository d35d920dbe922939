package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/freeflow/internal/snapshot"
	"github.com/nadzzz/freeflow/internal/transport"
)

// startServer serves handler over an in-memory listener and returns a client.
func startServer(t *testing.T, handler transport.Handler) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	tr := New(0)
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx, lis, handler) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func snapshotHandler(got *transport.Request) transport.Handler {
	return func(_ context.Context, req transport.Request) (*snapshot.ContextSnapshot, error) {
		*got = req
		return &snapshot.ContextSnapshot{
			CycleID:         "c-9",
			Metadata:        snapshot.Metadata{AppName: "Xcode", BundleID: "com.apple.dt.Xcode"},
			ActivitySummary: "The user is editing Swift code. They are likely fixing a build error.",
			Screenshot:      snapshot.Unavailable(snapshot.ReasonPermissionDenied),
		}, nil
	}
}

func TestCollect(t *testing.T) {
	var got transport.Request
	conn := startServer(t, snapshotHandler(&got))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := Collect(ctx, conn, &CollectRequest{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !got.IncludeScreenshot {
		t.Error("omitted include_screenshot should default to true")
	}
	if resp.CycleID != "c-9" || resp.AppName != "Xcode" {
		t.Errorf("resp = %+v", resp.ContextSnapshot)
	}
	if resp.Screenshot.Reason() != snapshot.ReasonPermissionDenied {
		t.Errorf("reason = %q", resp.Screenshot.Reason())
	}
	if resp.Context == "" {
		t.Error("context block missing")
	}

	off := false
	if _, err := Collect(ctx, conn, &CollectRequest{IncludeScreenshot: &off}); err != nil {
		t.Fatal(err)
	}
	if got.IncludeScreenshot {
		t.Error("include_screenshot=false was not forwarded")
	}
}

func TestCollectHandlerError(t *testing.T) {
	conn := startServer(t, func(context.Context, transport.Request) (*snapshot.ContextSnapshot, error) {
		return nil, errors.New("boom")
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Collect(ctx, conn, &CollectRequest{})
	if status.Code(err) != codes.Unknown {
		t.Errorf("code = %v; want Unknown", status.Code(err))
	}
}

func TestHealthService(t *testing.T) {
	var got transport.Request
	conn := startServer(t, snapshotHandler(&got))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v", resp.GetStatus())
	}
}
