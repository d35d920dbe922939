package platform

import "image"

// Unsupported is the backend for hosts without accessibility bindings. It
// reports no foreground application and no permissions, so every cycle
// resolves to the unrecognized context.
type Unsupported struct{}

var _ Backend = Unsupported{}

func (Unsupported) Trusted() bool                       { return false }
func (Unsupported) Frontmost() (App, error)             { return App{}, ErrNoForeground }
func (Unsupported) Application(int) Element             { return 0 }
func (Unsupported) ScreenCaptureAllowed() bool          { return false }
func (Unsupported) Windows() ([]WindowInfo, error)      { return nil, ErrPermissionDenied }
func (Unsupported) CaptureScreen() (image.Image, error) { return nil, ErrPermissionDenied }

func (Unsupported) ElementAttribute(Element, string) (Element, error) {
	return 0, ErrAttributeUnsupported
}

func (Unsupported) StringAttribute(Element, string) (string, error) {
	return "", ErrAttributeUnsupported
}

func (Unsupported) PointAttribute(Element, string) (Point, error) {
	return Point{}, ErrAttributeUnsupported
}

func (Unsupported) SizeAttribute(Element, string) (Size, error) {
	return Size{}, ErrAttributeUnsupported
}

func (Unsupported) CaptureWindow(WindowID) (image.Image, error) {
	return nil, ErrPermissionDenied
}
