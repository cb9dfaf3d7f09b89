package debug

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/webp"
)

// gradient returns bottom-up pixels where row y (from the bottom) has red = y*10.
func gradient(w, h int) []byte {
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			pixels[i] = byte(y * 10)
			pixels[i+1] = byte(x * 10)
			pixels[i+3] = 255
		}
	}
	return pixels
}

func TestFlipRows(t *testing.T) {
	img, err := FlipRows(gradient(3, 4), 3, 4)
	if err != nil {
		t.Fatalf("FlipRows failed: %v", err)
	}
	// The bottom GL row ends up at the bottom of the image.
	if got := img.RGBAAt(0, 3); got.R != 0 {
		t.Errorf("bottom row red = %d, want 0", got.R)
	}
	if got := img.RGBAAt(2, 0); got.R != 30 || got.G != 20 {
		t.Errorf("top-right = %v, want R=30 G=20", got)
	}
}

func TestFlipRowsSizeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		pixels []byte
		w, h   int
	}{
		{"short", make([]byte, 10), 2, 2},
		{"long", make([]byte, 20), 2, 2},
		{"zero", nil, 0, 0},
	}
	for _, tt := range tests {
		if _, err := FlipRows(tt.pixels, tt.w, tt.h); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestCaptureWebP(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sc := NewScreenshotCapture(dir, "roomstudio", "")
	sc.now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 7e6, time.Local) }

	path, err := sc.CaptureFromPixels(gradient(8, 6), 8, 6)
	if err != nil {
		t.Fatalf("CaptureFromPixels failed: %v", err)
	}
	if filepath.Base(path) != "roomstudio_2024-02-03_04-05-06.007.webp" {
		t.Errorf("unexpected file name %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open screenshot: %v", err)
	}
	defer f.Close()
	img, err := webp.Decode(f)
	if err != nil {
		t.Fatalf("decode webp: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 6) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	// Lossless: the top-left pixel is the last GL row.
	r, g, _, a := img.At(0, 0).RGBA()
	if r>>8 != 50 || g>>8 != 0 || a>>8 != 255 {
		t.Errorf("top-left = %v", img.At(0, 0))
	}
}

func TestCapturePNG(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "shot", FormatPNG)
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.RGBA{G: 200, A: 255})

	path, err := sc.CaptureFromImage(src)
	if err != nil {
		t.Fatalf("CaptureFromImage failed: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("expected .png, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read screenshot: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if _, g, _, _ := img.At(1, 1).RGBA(); g>>8 != 200 {
		t.Errorf("pixel green = %d, want 200", g>>8)
	}
}

func TestCaptureUnknownFormat(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "shot", "bmp")
	if _, err := sc.CaptureFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("got %v, want ErrUnknownFormat", err)
	}
}
