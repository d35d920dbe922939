// Package resolver identifies the user's foreground target through the
// accessibility layer: the active process, its focused window, and any
// selected text.
//
// Every lookup fails soft. A missing attribute yields an empty value and a
// missing foreground process yields an unrecognized Target, never an error.
package resolver

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/nadzzz/freeflow/internal/platform"
)

// Target is the resolved foreground application.
type Target struct {
	PID      int
	AppName  string
	BundleID string
	Root     platform.Element

	// Recognized is false when no foreground process could be determined.
	Recognized bool
}

// Resolver reads the foreground target from an AccessibilityQuery.
type Resolver struct {
	ax platform.AccessibilityQuery
}

// New creates a Resolver over the given accessibility backend.
func New(ax platform.AccessibilityQuery) *Resolver {
	return &Resolver{ax: ax}
}

// ResolveTarget returns the foreground application, or an unrecognized
// Target if none can be determined.
func (r *Resolver) ResolveTarget() Target {
	app, err := r.ax.Frontmost()
	if err != nil {
		if !errors.Is(err, platform.ErrNoForeground) {
			slog.Debug("frontmost application lookup failed", "error", err)
		}
		return Target{}
	}
	return Target{
		PID:        app.PID,
		AppName:    Clean(app.Name),
		BundleID:   strings.TrimSpace(app.BundleID),
		Root:       r.ax.Application(app.PID),
		Recognized: true,
	}
}

// FocusedWindowTitle returns the title of the application's focused window,
// or "" if any lookup fails.
func (r *Resolver) FocusedWindowTitle(root platform.Element) string {
	win, err := r.ax.ElementAttribute(root, platform.AttrFocusedWindow)
	if err != nil {
		return ""
	}
	title, err := r.ax.StringAttribute(win, platform.AttrTitle)
	if err != nil {
		return ""
	}
	return Clean(title)
}

// FocusedWindowBounds returns the focused window's frame. ok is false when
// the position or size is unavailable or the frame is degenerate.
func (r *Resolver) FocusedWindowBounds(root platform.Element) (platform.Rect, bool) {
	win, err := r.ax.ElementAttribute(root, platform.AttrFocusedWindow)
	if err != nil {
		return platform.Rect{}, false
	}
	pos, err := r.ax.PointAttribute(win, platform.AttrPosition)
	if err != nil {
		return platform.Rect{}, false
	}
	size, err := r.ax.SizeAttribute(win, platform.AttrSize)
	if err != nil {
		return platform.Rect{}, false
	}
	rect := platform.NewRect(pos, size)
	if rect.Empty() {
		return platform.Rect{}, false
	}
	return rect, true
}

// SelectedText reads the selection from the focused UI element, falling back
// to the application root when the focused element exposes none.
func (r *Resolver) SelectedText(root platform.Element) string {
	if el, err := r.ax.ElementAttribute(root, platform.AttrFocusedUIElement); err == nil {
		if s, err := r.ax.StringAttribute(el, platform.AttrSelectedText); err == nil {
			if text := Clean(s); text != "" {
				return text
			}
		}
	}
	if s, err := r.ax.StringAttribute(root, platform.AttrSelectedText); err == nil {
		return Clean(s)
	}
	return ""
}

// Clean trims surrounding whitespace and collapses embedded line breaks to
// single spaces.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
