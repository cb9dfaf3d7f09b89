package texture

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{512, 256, 2048, 512, 256},
		{4096, 2048, 2048, 2048, 1024},
		{1000, 4000, 500, 125, 500},
		{3000, 1, 1000, 1000, 1},
		{2048, 2048, 2048, 2048, 2048},
		{8000, 6000, 0, 8000, 6000},
	}
	for _, tt := range tests {
		w, h := FitSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("FitSize(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestToRGBACopiesOffsetImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 20, 14, 22))
	src.Set(10, 20, color.NRGBA{R: 255, A: 255})
	src.Set(13, 21, color.NRGBA{B: 255, A: 255})

	dst, err := ToRGBA(src, DefaultMaxSize)
	if err != nil {
		t.Fatalf("ToRGBA failed: %v", err)
	}
	if dst.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("top-left = %v", got)
	}
	if got := dst.RGBAAt(3, 1); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("bottom-right = %v", got)
	}
}

func TestToRGBADownscales(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	dst, err := ToRGBA(src, 16)
	if err != nil {
		t.Fatalf("ToRGBA failed: %v", err)
	}
	if dst.Bounds().Dx() != 16 || dst.Bounds().Dy() != 8 {
		t.Fatalf("size = %v, want 16x8", dst.Bounds())
	}
	// A uniform image stays uniform under bilinear filtering.
	if got := dst.RGBAAt(7, 3); got != (color.RGBA{R: 200, G: 200, B: 200, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestToRGBAEmpty(t *testing.T) {
	if _, err := ToRGBA(nil, 0); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("nil image: got %v", err)
	}
	if _, err := ToRGBA(image.NewRGBA(image.Rect(0, 0, 0, 5)), 0); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("zero width: got %v", err)
	}
}

func TestPlanarUV(t *testing.T) {
	m, err := mesh.NewBox(math.Vec3{X: -1, Y: -2, Z: 0}, math.Vec3{X: 3, Y: 2, Z: 5})
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}

	tests := []struct {
		name      string
		triangles []int
	}{
		{"floor", []int{0, 1}},
		{"side", []int{4, 5}},
		{"end", []int{10, 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uv := PlanarUV(m, tt.triangles)
			if len(uv) != len(tt.triangles) {
				t.Fatalf("got %d uv triples", len(uv))
			}
			var seen [2][2]bool // per axis: saw 0, saw 1
			for _, tri := range uv {
				for _, p := range tri {
					for j := 0; j < 2; j++ {
						if p[j] < 0 || p[j] > 1 {
							t.Fatalf("uv %v outside [0, 1]", p)
						}
						if p[j] == 0 {
							seen[j][0] = true
						}
						if p[j] == 1 {
							seen[j][1] = true
						}
					}
				}
			}
			if seen != [2][2]bool{{true, true}, {true, true}} {
				t.Errorf("uv does not span the unit square: %v", uv)
			}
		})
	}
}
