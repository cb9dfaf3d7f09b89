// Package texture prepares already decoded images for upload as surface textures.
package texture

import (
	"errors"
	"fmt"
	"image"
	gomath "math"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"

	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// DefaultMaxSize is the largest edge uploaded when no limit is configured.
const DefaultMaxSize = 2048

// ErrEmptyImage is returned for nil or zero-area images.
var ErrEmptyImage = errors.New("empty image")

// FitSize scales w x h down to fit within max on both edges, keeping the aspect ratio.
// Sizes that already fit are returned unchanged.
func FitSize(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}

// ToRGBA converts img to an RGBA image anchored at the origin, downscaling
// it with bilinear filtering when an edge exceeds maxSize.
func ToRGBA(img image.Image, maxSize int) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyImage, b)
	}

	w, h := FitSize(b.Dx(), b.Dy(), maxSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	return dst, nil
}

// PlanarUV projects the triangles of a surface onto the plane most facing
// their average normal and normalizes the result to [0, 1] over the surface.
// The returned slice has one entry per triangle, in the given order.
func PlanarUV(m *mesh.Mesh, triangles []int) [][3][2]float32 {
	var n math.Vec3
	for _, t := range triangles {
		n = n.Add(m.Normal(t).Scale(m.Area(t)))
	}
	project := dominantPlane(n)

	uv := make([][3][2]float32, len(triangles))
	lo := [2]float32{gomath.MaxFloat32, gomath.MaxFloat32}
	hi := [2]float32{-gomath.MaxFloat32, -gomath.MaxFloat32}
	for i, t := range triangles {
		a, b, c := m.Corners(t)
		for k, p := range [3]math.Vec3{a, b, c} {
			q := project(p)
			uv[i][k] = q
			for j := 0; j < 2; j++ {
				if q[j] < lo[j] {
					lo[j] = q[j]
				}
				if q[j] > hi[j] {
					hi[j] = q[j]
				}
			}
		}
	}

	for i := range uv {
		for k := range uv[i] {
			for j := 0; j < 2; j++ {
				if span := hi[j] - lo[j]; span > 0 {
					uv[i][k][j] = (uv[i][k][j] - lo[j]) / span
				} else {
					uv[i][k][j] = 0
				}
			}
		}
	}
	return uv
}

func dominantPlane(n math.Vec3) func(math.Vec3) [2]float32 {
	ax, ay, az := math32.Abs(n.X), math32.Abs(n.Y), math32.Abs(n.Z)
	switch {
	case az >= ax && az >= ay:
		return func(p math.Vec3) [2]float32 { return [2]float32{p.X, p.Y} }
	case ay >= ax:
		return func(p math.Vec3) [2]float32 { return [2]float32{p.X, p.Z} }
	default:
		return func(p math.Vec3) [2]float32 { return [2]float32{p.Y, p.Z} }
	}
}
