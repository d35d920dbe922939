// Package grpc implements the gRPC transport for freeflow.
//
// The ContextService has a single unary method, Collect, carried with a JSON
// codec so clients need no generated stubs: they invoke
// /freeflow.context.v1.ContextService/Collect with the "json" content
// subtype. The standard grpc.health.v1 service is registered alongside it.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nadzzz/freeflow/internal/transport"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "freeflow.context.v1.ContextService"

	// CollectMethod is the full method path of Collect.
	CollectMethod = "/" + ServiceName + "/Collect"
)

// codec marshals messages as JSON. It is selected by the "json" content subtype.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (codec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(codec{})
}

// CollectRequest is the Collect request message.
type CollectRequest struct {
	// IncludeScreenshot defaults to true when omitted.
	IncludeScreenshot *bool `json:"include_screenshot,omitempty"`
}

// contextServer is the handler type checked by RegisterService.
type contextServer interface {
	Collect(ctx context.Context, req *CollectRequest) (*transport.Response, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*contextServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Collect", Handler: collectHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "freeflow/context/v1/context.proto",
}

func collectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CollectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(contextServer).Collect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CollectMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(contextServer).Collect(ctx, req.(*CollectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// server adapts a transport.Handler to contextServer.
type server struct {
	handler transport.Handler
}

func (s *server) Collect(ctx context.Context, req *CollectRequest) (*transport.Response, error) {
	include := req.IncludeScreenshot == nil || *req.IncludeScreenshot
	snap, err := s.handler(ctx, transport.Request{IncludeScreenshot: include})
	if err != nil {
		slog.Error("context collection failed", "transport", "grpc", "error", err)
		return nil, err
	}
	return transport.NewResponse(snap), nil
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, handler)
}

// Serve runs the server on an existing listener until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, &server{handler: handler})

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// Collect calls the ContextService on conn.
func Collect(ctx context.Context, conn grpc.ClientConnInterface, req *CollectRequest) (*transport.Response, error) {
	out := new(transport.Response)
	if err := conn.Invoke(ctx, CollectMethod, req, out, grpc.CallContentSubtype("json")); err != nil {
		return nil, err
	}
	return out, nil
}
