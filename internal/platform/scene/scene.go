// Package scene is a platform backend driven by a YAML description of a
// desktop: the frontmost application, its focused window, the on-screen
// window list, and the pixels of each window.
//
// It lets the daemon run on hosts without accessibility bindings, and gives
// integration tests a deterministic desktop.
package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // decoders for window images
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/freeflow/internal/platform"
)

// File is the on-disk scene layout.
type File struct {
	Trusted         bool       `yaml:"trusted"`
	ScreenRecording bool       `yaml:"screen_recording"`
	Screen          Surface    `yaml:"screen"`
	Frontmost       *Frontmost `yaml:"frontmost"`
	Windows         []Window   `yaml:"windows"`
	WindowListError string     `yaml:"window_list_error"`
}

// Frontmost describes the active application.
type Frontmost struct {
	PID           int    `yaml:"pid"`
	Name          string `yaml:"name"`
	BundleID      string `yaml:"bundle_id"`
	FocusedWindow uint32 `yaml:"focused_window"`
	SelectedText  string `yaml:"selected_text"`
}

// Window is one entry of the window list.
type Window struct {
	ID       uint32         `yaml:"id"`
	OwnerPID int            `yaml:"owner_pid"`
	Layer    int            `yaml:"layer"`
	OnScreen *bool          `yaml:"on_screen"`
	Name     string         `yaml:"name"`
	Bounds   *platform.Rect `yaml:"bounds"`
	Surface  `yaml:",inline"`
}

// Surface is the pixel content of a window or the screen: an image file, or
// a solid fill of the given size.
type Surface struct {
	Image  string `yaml:"image"`
	Fill   string `yaml:"fill"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Element handles encode a kind in the high bits and an id in the low bits.
const (
	kindApp uint64 = iota + 1
	kindWindow
	kindFocused
)

func element(kind uint64, id uint32) platform.Element {
	return platform.Element(kind<<32 | uint64(id))
}

func split(el platform.Element) (uint64, uint32) {
	return uint64(el) >> 32, uint32(el)
}

// Backend serves a loaded scene.
type Backend struct {
	file File
	dir  string
}

var _ platform.Backend = (*Backend)(nil)

// Load reads and validates a scene file. Relative image paths resolve
// against the file's directory.
func Load(path string) (*Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	b.dir = filepath.Dir(path)
	return b, nil
}

// Parse decodes a scene from YAML.
func Parse(data []byte) (*Backend, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	seen := make(map[uint32]bool, len(f.Windows))
	for _, w := range f.Windows {
		if w.ID == 0 {
			return nil, fmt.Errorf("window %q has no id", w.Name)
		}
		if seen[w.ID] {
			return nil, fmt.Errorf("duplicate window id %d", w.ID)
		}
		seen[w.ID] = true
	}
	if fm := f.Frontmost; fm != nil && fm.FocusedWindow != 0 && !seen[fm.FocusedWindow] {
		return nil, fmt.Errorf("focused window %d is not in the window list", fm.FocusedWindow)
	}
	return &Backend{file: f, dir: "."}, nil
}

// ── AccessibilityQuery ────────────────────────────────────

func (b *Backend) Trusted() bool { return b.file.Trusted }

func (b *Backend) Frontmost() (platform.App, error) {
	fm := b.file.Frontmost
	if fm == nil {
		return platform.App{}, platform.ErrNoForeground
	}
	return platform.App{PID: fm.PID, Name: fm.Name, BundleID: fm.BundleID}, nil
}

func (b *Backend) Application(pid int) platform.Element {
	return element(kindApp, uint32(pid))
}

func (b *Backend) ElementAttribute(el platform.Element, attr string) (platform.Element, error) {
	if !b.file.Trusted {
		return 0, platform.ErrPermissionDenied
	}
	kind, id := split(el)
	fm := b.file.Frontmost
	if kind != kindApp || fm == nil || int(id) != fm.PID {
		return 0, platform.ErrAttributeUnsupported
	}
	switch attr {
	case platform.AttrFocusedWindow:
		if fm.FocusedWindow == 0 {
			return 0, platform.ErrAttributeUnsupported
		}
		return element(kindWindow, fm.FocusedWindow), nil
	case platform.AttrFocusedUIElement:
		return element(kindFocused, id), nil
	}
	return 0, platform.ErrAttributeUnsupported
}

func (b *Backend) StringAttribute(el platform.Element, attr string) (string, error) {
	if !b.file.Trusted {
		return "", platform.ErrPermissionDenied
	}
	kind, id := split(el)
	switch {
	case kind == kindWindow && attr == platform.AttrTitle:
		if w := b.window(id); w != nil {
			return w.Name, nil
		}
	case kind == kindFocused && attr == platform.AttrSelectedText:
		if fm := b.file.Frontmost; fm != nil && fm.SelectedText != "" {
			return fm.SelectedText, nil
		}
	}
	return "", platform.ErrAttributeUnsupported
}

func (b *Backend) PointAttribute(el platform.Element, attr string) (platform.Point, error) {
	r, err := b.frame(el, attr, platform.AttrPosition)
	return platform.Point{X: r.X, Y: r.Y}, err
}

func (b *Backend) SizeAttribute(el platform.Element, attr string) (platform.Size, error) {
	r, err := b.frame(el, attr, platform.AttrSize)
	return platform.Size{Width: r.Width, Height: r.Height}, err
}

func (b *Backend) frame(el platform.Element, attr, want string) (platform.Rect, error) {
	if !b.file.Trusted {
		return platform.Rect{}, platform.ErrPermissionDenied
	}
	kind, id := split(el)
	if kind != kindWindow || attr != want {
		return platform.Rect{}, platform.ErrAttributeUnsupported
	}
	w := b.window(id)
	if w == nil || w.Bounds == nil {
		return platform.Rect{}, platform.ErrAttributeUnsupported
	}
	return *w.Bounds, nil
}

func (b *Backend) window(id uint32) *Window {
	for i := range b.file.Windows {
		if b.file.Windows[i].ID == id {
			return &b.file.Windows[i]
		}
	}
	return nil
}

// ── WindowCapture ─────────────────────────────────────────

func (b *Backend) ScreenCaptureAllowed() bool { return b.file.ScreenRecording }

func (b *Backend) Windows() ([]platform.WindowInfo, error) {
	if !b.file.ScreenRecording {
		return nil, platform.ErrPermissionDenied
	}
	if b.file.WindowListError != "" {
		return nil, fmt.Errorf("window list: %s", b.file.WindowListError)
	}
	out := make([]platform.WindowInfo, 0, len(b.file.Windows))
	for _, w := range b.file.Windows {
		onScreen := w.OnScreen == nil || *w.OnScreen
		out = append(out, platform.WindowInfo{
			ID:       platform.WindowID(w.ID),
			OwnerPID: w.OwnerPID,
			Layer:    w.Layer,
			OnScreen: onScreen,
			Bounds:   w.Bounds,
			Name:     w.Name,
		})
	}
	return out, nil
}

func (b *Backend) CaptureWindow(id platform.WindowID) (image.Image, error) {
	if !b.file.ScreenRecording {
		return nil, platform.ErrPermissionDenied
	}
	w := b.window(uint32(id))
	if w == nil {
		return nil, fmt.Errorf("window %d: %w", id, platform.ErrCaptureUnavailable)
	}
	s := w.Surface
	if s.Image == "" && (s.Width == 0 || s.Height == 0) && w.Bounds != nil {
		s.Width, s.Height = int(w.Bounds.Width), int(w.Bounds.Height)
	}
	return b.render(s)
}

func (b *Backend) CaptureScreen() (image.Image, error) {
	if !b.file.ScreenRecording {
		return nil, platform.ErrPermissionDenied
	}
	return b.render(b.file.Screen)
}

// render produces the pixels for a surface.
func (b *Backend) render(s Surface) (image.Image, error) {
	if s.Image != "" {
		path := s.Image
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", platform.ErrCaptureUnavailable, err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %v", platform.ErrCaptureUnavailable, s.Image, err)
		}
		return img, nil
	}

	if s.Width <= 0 || s.Height <= 0 {
		return nil, platform.ErrCaptureUnavailable
	}
	c, err := parseColor(s.Fill)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img, nil
}

// parseColor accepts "#rrggbb". An empty string is mid grey.
func parseColor(s string) (color.Color, error) {
	if s == "" {
		return color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("invalid fill %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid fill %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
