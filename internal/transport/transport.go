// Package transport defines the interface for the pluggable request surfaces
// that expose the context pipeline to clients.
//
// Each transport (gRPC, HTTP) implements this interface and is handed the
// collector's Handle function. Transports only translate requests and
// responses; they never run pipeline stages themselves.
package transport

import (
	"context"

	"github.com/nadzzz/freeflow/internal/snapshot"
)

// Request asks for one context snapshot.
type Request struct {
	// IncludeScreenshot keeps the encoded image in the response. When false
	// the screenshot is reported by status only.
	IncludeScreenshot bool
}

// Handler collects a snapshot for a request. The collector provides this
// handler to each transport.
type Handler func(ctx context.Context, req Request) (*snapshot.ContextSnapshot, error)

// Response is the wire form of a snapshot shared by every transport.
type Response struct {
	*snapshot.ContextSnapshot

	// Context is the rendered block attached to the transcript
	// post-processing request.
	Context string `json:"context"`
}

// NewResponse wraps a snapshot for the wire.
func NewResponse(snap *snapshot.ContextSnapshot) *Response {
	return &Response{ContextSnapshot: snap, Context: snap.Summary()}
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
