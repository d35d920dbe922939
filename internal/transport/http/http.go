// Package http implements the HTTP transport for freeflow.
//
// This transport exposes a small REST API that returns the current context
// snapshot, plus the Swagger UI for it. It is what the dictation front end
// calls when the user presses the push-to-talk key.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/freeflow/internal/docs" // registers the OpenAPI document
	"github.com/nadzzz/freeflow/internal/transport"
)

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routes served by the transport.
func (t *Transport) Handler(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /v1/context: collect a snapshot of the user's current context.
	mux.HandleFunc("POST /v1/context", func(w http.ResponseWriter, r *http.Request) {
		t.handleContext(w, r, handler)
	})

	// Swagger UI: serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleContext processes a POST /v1/context request.
//
// @Summary     Collect the current context snapshot
// @Description Resolves the foreground application, reads its focused window title and selected text,
// @Description captures a size-bounded screenshot, and infers a two-sentence activity summary.
// @Description The call always succeeds with a complete snapshot; degraded stages are reported in the body.
// @Tags        context
// @Produce     json
// @Param       include_screenshot  query     bool  false  "Include the encoded screenshot data URI (default true)"
// @Success     200  {object}  transport.Response  "Context snapshot"
// @Failure     400  {string}  string  "Invalid query parameter"
// @Failure     500  {string}  string  "Internal processing error"
// @Router      /v1/context [post]
func (t *Transport) handleContext(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	req := transport.Request{IncludeScreenshot: true}
	if v := r.URL.Query().Get("include_screenshot"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid include_screenshot: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.IncludeScreenshot = include
	}

	snap, err := handler(r.Context(), req)
	if err != nil {
		slog.Error("context collection failed", "error", err)
		http.Error(w, "context error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(transport.NewResponse(snap))
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
