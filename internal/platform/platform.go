// Package platform defines the OS capabilities the context pipeline reads from.
//
// Two capability interfaces cover everything the pipeline needs from the
// desktop: AccessibilityQuery (foreground process and accessibility
// attributes) and WindowCapture (on-screen window list and pixel capture).
// Backends implement them per platform; the pipeline never talks to the OS
// directly.
package platform

import (
	"errors"
	"image"
)

var (
	// ErrPermissionDenied means the OS has not granted the trust the call needs.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoForeground means no foreground application could be determined.
	ErrNoForeground = errors.New("no foreground application")

	// ErrAttributeUnsupported means the element does not expose the attribute.
	ErrAttributeUnsupported = errors.New("attribute unsupported")

	// ErrCaptureUnavailable means no image could be produced for the target.
	ErrCaptureUnavailable = errors.New("capture unavailable")
)

// Accessibility attribute names, as exposed by the macOS AX API.
const (
	AttrFocusedWindow    = "AXFocusedWindow"
	AttrFocusedUIElement = "AXFocusedUIElement"
	AttrTitle            = "AXTitle"
	AttrSelectedText     = "AXSelectedText"
	AttrPosition         = "AXPosition"
	AttrSize             = "AXSize"
)

// App identifies the foreground process.
type App struct {
	PID      int
	Name     string
	BundleID string
}

// Element is an opaque accessibility node handle owned by the backend.
type Element uint64

// AccessibilityQuery reads the foreground application and its accessibility tree.
// Every lookup is read-only; failures are reported as errors and never panic.
type AccessibilityQuery interface {
	// Trusted reports whether the process holds accessibility trust.
	Trusted() bool

	// Frontmost returns the active application or ErrNoForeground.
	Frontmost() (App, error)

	// Application returns the root element for a process.
	Application(pid int) Element

	// ElementAttribute resolves an attribute whose value is another element.
	ElementAttribute(el Element, attr string) (Element, error)

	// StringAttribute resolves a textual attribute.
	StringAttribute(el Element, attr string) (string, error)

	// PointAttribute resolves a position attribute (AXPosition).
	PointAttribute(el Element, attr string) (Point, error)

	// SizeAttribute resolves a size attribute (AXSize).
	SizeAttribute(el Element, attr string) (Size, error)
}

// WindowID is the window server's numeric window identifier.
type WindowID uint32

// WindowInfo is one entry of the on-screen window list.
type WindowInfo struct {
	ID       WindowID
	OwnerPID int
	Layer    int
	OnScreen bool
	// Bounds is nil when the window server did not report geometry.
	Bounds *Rect
	Name   string
}

// WindowCapture enumerates windows and captures their pixels.
type WindowCapture interface {
	// ScreenCaptureAllowed is the pre-flight screen-recording permission check.
	// It must not prompt the user.
	ScreenCaptureAllowed() bool

	// Windows lists on-screen windows, excluding desktop elements.
	Windows() ([]WindowInfo, error)

	// CaptureWindow returns the pixels of a single window.
	CaptureWindow(id WindowID) (image.Image, error)

	// CaptureScreen returns the pixels of the primary display region.
	CaptureScreen() (image.Image, error)
}

// Backend bundles both capabilities, which is how most platforms ship them.
type Backend interface {
	AccessibilityQuery
	WindowCapture
}
