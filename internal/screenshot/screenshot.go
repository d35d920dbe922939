// Package screenshot captures and encodes the foreground window for one
// dictation cycle.
//
// The stage gates on the screen-recording pre-flight check, asks the
// selector for an ordered plan of capture targets, and tries each target in
// turn until one produces an image that the encoder fits into the budget.
// It always returns a snapshot.Screenshot, never an error.
package screenshot

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/nadzzz/freeflow/internal/encoder"
	"github.com/nadzzz/freeflow/internal/platform"
	"github.com/nadzzz/freeflow/internal/selector"
	"github.com/nadzzz/freeflow/internal/snapshot"
)

// Request describes the foreground target to capture.
type Request struct {
	PID   int
	Title string
	// Bounds is the accessibility-reported focused-window frame, nil if unknown.
	Bounds *platform.Rect
}

// Capturer runs the capture stage.
type Capturer struct {
	windows platform.WindowCapture
	encoder *encoder.Encoder
}

// New creates a Capturer.
func New(windows platform.WindowCapture, enc *encoder.Encoder) *Capturer {
	return &Capturer{windows: windows, encoder: enc}
}

// Capture returns the encoded screenshot or the reason there is none.
func (c *Capturer) Capture(req Request, logger *slog.Logger) snapshot.Screenshot {
	if logger == nil {
		logger = slog.Default()
	}

	if !c.windows.ScreenCaptureAllowed() {
		logger.Info("screenshot skipped", "reason", "screen recording permission not granted")
		return snapshot.Unavailable(snapshot.ReasonPermissionDenied)
	}

	windows, err := c.windows.Windows()
	if err != nil {
		logger.Warn("window list unavailable", "error", err)
		return snapshot.Unavailable(snapshot.ReasonNoWindowList)
	}

	plan := selector.Plan(windows, req.PID, req.Title, req.Bounds)

	var errs error
	for _, target := range plan {
		shot, err := c.attempt(target)
		if err == nil {
			logger.Debug("screenshot captured",
				"strategy", target.Strategy, "window_id", target.WindowID,
				"width", shot.Width, "height", shot.Height)
			return snapshot.Available(shot)
		}
		errs = multierr.Append(errs, fmt.Errorf("%s target %d: %w", target.Strategy, target.WindowID, err))

		if target.Kind == selector.KindFullScreen {
			logger.Debug("all capture targets failed", "error", errs)
			if errors.Is(err, encoder.ErrBudgetExceeded) {
				return snapshot.Unavailable(snapshot.ReasonSizeLimitExceeded)
			}
			return snapshot.Unavailable(snapshot.ReasonCaptureFailed)
		}
	}

	// Plan always ends with the full-screen target.
	return snapshot.Unavailable(snapshot.ReasonCaptureFailed)
}

func (c *Capturer) attempt(target selector.Target) (snapshot.Encoded, error) {
	var (
		raw image.Image
		err error
	)
	if target.Kind == selector.KindWindow {
		raw, err = c.windows.CaptureWindow(target.WindowID)
	} else {
		raw, err = c.windows.CaptureScreen()
	}
	if err != nil {
		return snapshot.Encoded{}, err
	}
	return c.encoder.Encode(raw)
}
