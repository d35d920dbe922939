package platform

import "math"

// Point is a screen coordinate in points, origin at the top-left of the main display.
type Point struct {
	X, Y float64
}

// Size is a width/height pair in points.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle in screen points.
type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// NewRect builds a rectangle from an origin and size.
func NewRect(p Point, s Size) Rect {
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

// Empty reports whether the rectangle encloses no area. NaN and infinite
// components are treated as empty.
func (r Rect) Empty() bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return r.Width <= 0 || r.Height <= 0
}

// Area returns width*height, or zero for an empty rectangle.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlap of r and o. ok is false when they share no area.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	if r.Empty() || o.Empty() {
		return Rect{}, false
	}
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.X+r.Width, o.X+o.Width)
	y1 := math.Min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}
