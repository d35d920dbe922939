// Package collector assembles a ContextSnapshot for one dictation cycle.
//
// The collector runs the stages in order, each feeding the next: resolve the
// foreground target, read its focused window and selection, capture and
// encode a screenshot, then infer an activity summary. Every stage absorbs
// its own failures, so Collect always returns a complete snapshot with a
// non-empty summary. Inference is the only network call and honours
// cancellation of the cycle's context.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/freeflow/internal/config"
	"github.com/nadzzz/freeflow/internal/credential"
	"github.com/nadzzz/freeflow/internal/encoder"
	"github.com/nadzzz/freeflow/internal/inference"
	"github.com/nadzzz/freeflow/internal/platform"
	"github.com/nadzzz/freeflow/internal/resolver"
	"github.com/nadzzz/freeflow/internal/screenshot"
	"github.com/nadzzz/freeflow/internal/snapshot"
	"github.com/nadzzz/freeflow/internal/transport"
)

// Collector is the context pipeline.
type Collector struct {
	ax         platform.AccessibilityQuery
	resolver   *resolver.Resolver
	capturer   *screenshot.Capturer
	inference  config.InferenceConfig
	keys       credential.Store
	httpClient *http.Client
	now        func() time.Time
}

// New creates a Collector over a platform backend. The inference credential
// is read from keys at the start of every cycle.
func New(backend platform.Backend, cfg *config.Config, keys credential.Store) *Collector {
	return &Collector{
		ax:         backend,
		resolver:   resolver.New(backend),
		capturer:   screenshot.New(backend, encoder.FromConfig(cfg.Capture)),
		inference:  cfg.Inference,
		keys:       keys,
		httpClient: inference.NewHTTPClient(cfg.Inference.Timeout),
		now:        time.Now,
	}
}

// Collect runs one cycle synchronously.
func (c *Collector) Collect(ctx context.Context) snapshot.ContextSnapshot {
	return c.collect(ctx, uuid.NewString())
}

// Handle serves a transport request. It satisfies transport.Handler.
func (c *Collector) Handle(ctx context.Context, req transport.Request) (*snapshot.ContextSnapshot, error) {
	snap := c.Collect(ctx)
	if !req.IncludeScreenshot {
		snap.Screenshot = snap.Screenshot.WithoutImage()
	}
	return &snap, nil
}

func (c *Collector) collect(ctx context.Context, cycleID string) snapshot.ContextSnapshot {
	start := time.Now()
	logger := slog.With("cycle_id", cycleID)

	snap := snapshot.ContextSnapshot{CycleID: cycleID, CapturedAt: c.now()}

	// Step 1: Resolve the foreground target.
	target := c.resolver.ResolveTarget()
	if !target.Recognized {
		logger.Info("no foreground application")
		snap.ActivitySummary = snapshot.UnrecognizedActivity
		snap.Screenshot = snapshot.Unavailable(snapshot.ReasonNoFrontmostApp)
		return snap
	}
	if !c.ax.Trusted() {
		logger.Warn("accessibility permission not granted, window metadata will be limited")
	}

	// Step 2: Read window title and selection.
	md := snapshot.Metadata{
		AppName:      target.AppName,
		BundleID:     target.BundleID,
		WindowTitle:  c.resolver.FocusedWindowTitle(target.Root),
		SelectedText: c.resolver.SelectedText(target.Root),
	}
	if md.WindowTitle == "" {
		md.WindowTitle = md.AppName
	}
	snap.Metadata = md
	logger.Debug("target resolved",
		"pid", target.PID, "app", md.AppName, "bundle_id", md.BundleID,
		"has_title", md.WindowTitle != "", "selected_text_length", len(md.SelectedText))

	// Step 3: Capture the screenshot.
	req := screenshot.Request{PID: target.PID, Title: md.WindowTitle}
	if bounds, ok := c.resolver.FocusedWindowBounds(target.Root); ok {
		req.Bounds = &bounds
	}
	snap.Screenshot = c.capturer.Capture(req, logger)

	// Step 4: Infer the activity summary.
	var shot *snapshot.Encoded
	if e, ok := snap.Screenshot.Encoded(); ok {
		shot = &e
	}
	snap.ActivitySummary = c.inferActivity(ctx, md, shot, logger)

	logger.Info("context collected",
		"duration", time.Since(start),
		"app", md.AppName,
		"screenshot", snap.Screenshot.Status())
	return snap
}

func (c *Collector) inferActivity(ctx context.Context, md snapshot.Metadata, shot *snapshot.Encoded, logger *slog.Logger) string {
	fallback := inference.Fallback(md.AppName, shot != nil)

	key, err := c.keys.APIKey()
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			logger.Warn("reading inference credential failed", "error", err)
		}
		return fallback
	}

	summary := inference.New(c.inference, key, c.httpClient).InferActivity(ctx, md, shot, logger)
	if strings.TrimSpace(summary) == "" {
		return fallback
	}
	return summary
}

// Cycle is an in-flight collection started by Start.
type Cycle struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}
	snap   snapshot.ContextSnapshot
}

// Start runs a cycle in the background so the caller's UI loop is never
// blocked on the network.
func (c *Collector) Start(ctx context.Context) *Cycle {
	ctx, cancel := context.WithCancel(ctx)
	cy := &Cycle{ID: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(cy.done)
		cy.snap = c.collect(ctx, cy.ID)
	}()
	return cy
}

// Abort cancels the in-flight inference request. The cycle still completes,
// with the heuristic summary.
func (cy *Cycle) Abort() { cy.cancel() }

// Done is closed once the snapshot is ready.
func (cy *Cycle) Done() <-chan struct{} { return cy.done }

// Wait blocks until the snapshot is ready and returns it.
func (cy *Cycle) Wait() snapshot.ContextSnapshot {
	<-cy.done
	cy.cancel()
	return cy.snap
}
