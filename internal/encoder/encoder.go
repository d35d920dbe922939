// Package encoder fits a captured screenshot into the inference transport
// budget.
//
// The encoder walks a ladder of (max dimension, quality) rungs in order and
// returns the first encoding whose base64 payload fits the budget. Rungs are
// ordered so that each one is no larger than the one before it, which makes
// the first fit the best fit.
package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math"

	"golang.org/x/image/draw"

	"github.com/nadzzz/freeflow/internal/config"
	"github.com/nadzzz/freeflow/internal/snapshot"
)

// ErrBudgetExceeded means every rung of the ladder encoded above the budget.
var ErrBudgetExceeded = errors.New("encoded screenshot exceeds size budget")

// Rung is one encoding attempt. MaxDimension 0 means native resolution.
type Rung struct {
	MaxDimension int
	Quality      float64
}

// Codec compresses an image at a quality in (0, 1].
type Codec interface {
	MIMEType() string
	Encode(w io.Writer, img image.Image, quality float64) error
}

// JPEG encodes with the standard library JPEG encoder.
type JPEG struct{}

// MIMEType returns "image/jpeg".
func (JPEG) MIMEType() string { return "image/jpeg" }

// Encode writes img as baseline JPEG.
func (JPEG) Encode(w io.Writer, img image.Image, quality float64) error {
	q := int(math.Round(quality * 100))
	q = min(max(q, 1), 100)
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

// Encoder runs the ladder search.
type Encoder struct {
	ladder []Rung
	budget int
	codec  Codec
}

// New creates an Encoder. budget is the maximum base64 payload length in characters.
func New(ladder []Rung, budget int, codec Codec) *Encoder {
	if codec == nil {
		codec = JPEG{}
	}
	return &Encoder{ladder: ladder, budget: budget, codec: codec}
}

// FromConfig builds a JPEG Encoder from the capture settings.
func FromConfig(cfg config.CaptureConfig) *Encoder {
	ladder := make([]Rung, len(cfg.Ladder))
	for i, r := range cfg.Ladder {
		ladder[i] = Rung{MaxDimension: r.MaxDimension, Quality: r.Quality}
	}
	return New(ladder, cfg.MaxDataURILength, JPEG{})
}

// Encode returns the first rung that fits the budget, or ErrBudgetExceeded.
func (e *Encoder) Encode(img image.Image) (snapshot.Encoded, error) {
	if img == nil || img.Bounds().Empty() {
		return snapshot.Encoded{}, fmt.Errorf("encoding screenshot: empty image")
	}

	var buf bytes.Buffer
	for i, rung := range e.ladder {
		scaled := img
		if rung.MaxDimension > 0 {
			scaled = Resize(img, rung.MaxDimension)
		}

		buf.Reset()
		if err := e.codec.Encode(&buf, scaled, rung.Quality); err != nil {
			return snapshot.Encoded{}, fmt.Errorf("encoding rung %d: %w", i, err)
		}

		n := base64.StdEncoding.EncodedLen(buf.Len())
		size := scaled.Bounds().Size()
		if n > e.budget {
			slog.Debug("screenshot rung over budget",
				"rung", i, "width", size.X, "height", size.Y,
				"quality", rung.Quality, "base64_len", n, "budget", e.budget)
			continue
		}

		slog.Debug("screenshot encoded",
			"rung", i, "width", size.X, "height", size.Y,
			"quality", rung.Quality, "base64_len", n)
		return snapshot.Encoded{
			DataURI:  "data:" + e.codec.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
			MIMEType: e.codec.MIMEType(),
			Width:    size.X,
			Height:   size.Y,
		}, nil
	}
	return snapshot.Encoded{}, ErrBudgetExceeded
}

// Resize scales img so its longer side is at most maxDim, preserving aspect
// ratio. Images already within maxDim are returned unchanged.
func Resize(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	// Integer arithmetic keeps the long side exactly maxDim.
	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, (h*maxDim+w/2)/w)
	} else {
		nw = max(1, (w*maxDim+h/2)/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
