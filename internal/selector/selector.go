// Package selector decides which on-screen window to capture for the
// foreground application.
//
// A process often owns several on-screen windows (tabs, palettes, sheets),
// and the window server does not say which one the accessibility layer
// considers focused. The selector resolves that ambiguity in three steps:
//
//  1. geometry: the candidate overlapping the focused-window frame, lowest
//     layer first, then largest overlap;
//  2. title: the candidate whose name matches the focused-window title,
//     lowest layer first, then largest on-screen area;
//  3. full screen, which is always available once screen recording is granted.
//
// Title matching only runs when a focused-window frame was reported.
package selector

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nadzzz/freeflow/internal/platform"
)

// Kind distinguishes window captures from the full-screen fallback.
type Kind int

const (
	KindWindow Kind = iota
	KindFullScreen
)

func (k Kind) String() string {
	if k == KindFullScreen {
		return "fullscreen"
	}
	return "window"
}

// Strategy names the step that produced a Target.
type Strategy string

const (
	StrategyGeometry   Strategy = "geometry"
	StrategyTitle      Strategy = "title"
	StrategyFullScreen Strategy = "fullscreen"
)

// Target is one capture attempt.
type Target struct {
	Kind     Kind
	WindowID platform.WindowID
	Strategy Strategy
}

// FullScreen is the capture of last resort.
var FullScreen = Target{Kind: KindFullScreen, Strategy: StrategyFullScreen}

// Candidate is a window owned by the foreground process.
type Candidate struct {
	ID     platform.WindowID
	Layer  int
	Bounds *platform.Rect
	// Area is the on-screen area, 1 when the window reported no bounds.
	Area float64
	Name string
}

// Candidates filters the window list to on-screen windows owned by pid.
func Candidates(windows []platform.WindowInfo, pid int) []Candidate {
	var out []Candidate
	for _, w := range windows {
		if w.OwnerPID != pid || !w.OnScreen {
			continue
		}
		c := Candidate{ID: w.ID, Layer: w.Layer, Name: strings.TrimSpace(w.Name), Area: 1}
		if w.Bounds != nil {
			b := *w.Bounds
			c.Bounds = &b
			c.Area = b.Area()
		}
		out = append(out, c)
	}
	return out
}

// ByGeometry picks the candidate intersecting focused, preferring the lowest
// layer and then the largest overlap.
func ByGeometry(cands []Candidate, focused platform.Rect) (Candidate, bool) {
	type scored struct {
		c       Candidate
		overlap float64
	}
	var hits []scored
	for _, c := range cands {
		if c.Bounds == nil {
			continue
		}
		in, ok := c.Bounds.Intersect(focused)
		if !ok {
			continue
		}
		hits = append(hits, scored{c: c, overlap: in.Area()})
	}
	if len(hits) == 0 {
		return Candidate{}, false
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		if a.c.Layer != b.c.Layer {
			return cmp.Compare(a.c.Layer, b.c.Layer)
		}
		return cmp.Compare(b.overlap, a.overlap)
	})
	return hits[0].c, true
}

// ByTitle picks the candidate whose case-folded name equals or contains the
// case-folded title, preferring the lowest layer and then the largest area.
func ByTitle(cands []Candidate, title string) (Candidate, bool) {
	fold := cases.Fold()
	target := strings.TrimSpace(fold.String(title))
	if target == "" {
		return Candidate{}, false
	}
	var hits []Candidate
	for _, c := range cands {
		name := strings.TrimSpace(fold.String(c.Name))
		if name == "" {
			continue
		}
		if name == target || strings.Contains(name, target) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return Candidate{}, false
	}
	slices.SortStableFunc(hits, func(a, b Candidate) int {
		if a.Layer != b.Layer {
			return cmp.Compare(a.Layer, b.Layer)
		}
		return cmp.Compare(b.Area, a.Area)
	})
	return hits[0], true
}

// Plan returns the ordered capture attempts for the foreground process. The
// last entry is always FullScreen. A window chosen by geometry is not
// repeated by the title step.
func Plan(windows []platform.WindowInfo, pid int, title string, focused *platform.Rect) []Target {
	if focused == nil || focused.Empty() {
		return []Target{FullScreen}
	}
	cands := Candidates(windows, pid)

	var plan []Target
	geo, ok := ByGeometry(cands, *focused)
	if ok {
		plan = append(plan, Target{Kind: KindWindow, WindowID: geo.ID, Strategy: StrategyGeometry})
	}
	if named, found := ByTitle(cands, title); found && (!ok || named.ID != geo.ID) {
		plan = append(plan, Target{Kind: KindWindow, WindowID: named.ID, Strategy: StrategyTitle})
	}
	return append(plan, FullScreen)
}

// Select returns the first capture attempt of Plan.
func Select(windows []platform.WindowInfo, pid int, title string, focused *platform.Rect) Target {
	return Plan(windows, pid, title, focused)[0]
}
