package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"testing"

	"github.com/nadzzz/freeflow/internal/config"
)

// sizeCodec writes one byte per pixel and records every attempt, so payload
// size depends only on the rung's dimensions.
type sizeCodec struct {
	attempts []attempt
}

type attempt struct {
	w, h    int
	quality float64
}

func (c *sizeCodec) MIMEType() string { return "image/test" }

func (c *sizeCodec) Encode(w io.Writer, img image.Image, quality float64) error {
	s := img.Bounds().Size()
	c.attempts = append(c.attempts, attempt{s.X, s.Y, quality})
	_, err := w.Write(make([]byte, s.X*s.Y))
	return err
}

func defaultLadder() []Rung {
	var out []Rung
	for _, r := range config.DefaultLadder() {
		out = append(out, Rung{MaxDimension: r.MaxDimension, Quality: r.Quality})
	}
	return out
}

func TestEncodeStopsAtFirstFittingRung(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2400, 1800))
	codec := &sizeCodec{}

	// 1024x768 -> 786432 bytes -> 1048576 base64 chars fits;
	// 1280x960 -> 1228800 bytes -> 1638400 base64 chars does not.
	enc := New(defaultLadder(), 1_100_000, codec)

	got, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := []attempt{
		{2400, 1800, 0.6},
		{2048, 1536, 0.6},
		{1600, 1200, 0.6},
		{1280, 960, 0.6},
		{1024, 768, 0.6},
	}
	if len(codec.attempts) != len(want) {
		t.Fatalf("attempts = %+v; want %+v", codec.attempts, want)
	}
	for i := range want {
		if codec.attempts[i] != want[i] {
			t.Errorf("attempt %d = %+v; want %+v", i, codec.attempts[i], want[i])
		}
	}

	if got.Width != 1024 || got.Height != 768 {
		t.Errorf("encoded size = %dx%d; want 1024x768", got.Width, got.Height)
	}
	if got.MIMEType != "image/test" {
		t.Errorf("mime = %q", got.MIMEType)
	}
	prefix := "data:image/test;base64,"
	if !strings.HasPrefix(got.DataURI, prefix) {
		t.Fatalf("data URI prefix = %.40q", got.DataURI)
	}
	if payload := len(got.DataURI) - len(prefix); payload > 1_100_000 {
		t.Errorf("payload %d exceeds budget", payload)
	}
}

func TestEncodeNativeFits(t *testing.T) {
	codec := &sizeCodec{}
	enc := New(defaultLadder(), 1_000_000, codec)

	got, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 300, 200)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(codec.attempts) != 1 {
		t.Errorf("attempts = %d; want 1", len(codec.attempts))
	}
	if got.Width != 300 || got.Height != 200 {
		t.Errorf("size = %dx%d; want native 300x200", got.Width, got.Height)
	}
}

func TestEncodeBudgetExceeded(t *testing.T) {
	codec := &sizeCodec{}
	enc := New(defaultLadder(), 10, codec)

	_, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 800, 600)))
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v; want ErrBudgetExceeded", err)
	}
	if len(codec.attempts) != len(defaultLadder()) {
		t.Errorf("attempts = %d; want every rung (%d)", len(codec.attempts), len(defaultLadder()))
	}
	last := codec.attempts[len(codec.attempts)-1]
	if last != (attempt{120, 90, 0.3}) {
		t.Errorf("last attempt = %+v; want 120x90 at 0.3", last)
	}
}

func TestEncodeEmptyImage(t *testing.T) {
	enc := New(defaultLadder(), 1000, &sizeCodec{})
	if _, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 4000, 2000, 1000, 1000, 500},
		{"portrait", 1000, 3000, 300, 100, 300},
		{"never upscales", 100, 50, 320, 100, 50},
		{"exact fit untouched", 320, 200, 320, 320, 200},
		{"extreme aspect keeps one pixel", 10000, 2, 100, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Resize(img, tt.max).Bounds().Size()
			if got.X != tt.wantW || got.Y != tt.wantH {
				t.Errorf("Resize(%dx%d, %d) = %dx%d; want %dx%d", tt.w, tt.h, tt.max, got.X, got.Y, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestJPEGRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 5), 128, 255})
		}
	}

	enc := FromConfig(config.CaptureConfig{MaxDataURILength: 3_900_000, Ladder: config.DefaultLadder()})
	got, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(got.DataURI, prefix) {
		t.Fatalf("data URI = %.40q", got.DataURI)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got.DataURI, prefix))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	if decoded.Bounds().Size() != image.Pt(64, 48) {
		t.Errorf("decoded size = %v", decoded.Bounds().Size())
	}
}
