// Package picking provides ray casting against the mesh and the placed entities.
package picking

import (
	"fmt"
	gomath "math"

	"github.com/chewxy/math32"

	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

const (
	// DetEpsilon rejects triangles nearly parallel to the ray. It is relative
	// to the edge lengths, so the cutoff is the same angle at any model scale.
	DetEpsilon = 1e-7
	// MinT is the smallest ray parameter counted as a hit.
	MinT = 1e-6
)

// ErrInvalidRay is returned for a ray whose direction has no length or is not finite.
var ErrInvalidRay = fmt.Errorf("%w: degenerate ray", mesh.ErrInvalidInput)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// NewRay builds a ray and normalizes its direction.
func NewRay(origin, direction math.Vec3) (Ray, error) {
	if !origin.IsFinite() || !direction.IsFinite() {
		return Ray{}, fmt.Errorf("origin %v direction %v: %w", origin, direction, ErrInvalidRay)
	}
	if direction.LengthSq() == 0 {
		return Ray{}, fmt.Errorf("zero direction: %w", ErrInvalidRay)
	}
	return Ray{Origin: origin, Direction: direction.Normalize()}, nil
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectTriangle runs Möller–Trumbore against triangle abc.
// u and v are the barycentric weights of b and c; a gets 1-u-v.
func (r Ray) IntersectTriangle(a, b, c math.Vec3) (t, u, v float32, hit bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) <= DetEpsilon*e1.Length()*e2.Length() {
		return 0, 0, 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u = s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(e1)
	v = r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(q) * inv
	if t <= MinT {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// IntersectSphere tests the ray against a sphere.
// If the ray starts inside the sphere, returns the exit distance.
func (r Ray) IntersectSphere(center math.Vec3, radius float32) (t float32, hit bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.LengthSq() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math32.Sqrt(disc)
	t0, t1 := -b-sq, -b+sq
	if t1 < 0 {
		return 0, false
	}
	if t0 < 0 {
		return t1, true
	}
	return t0, true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box math.AABB) (t float32, hit bool) {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float32{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float32{box.Max.X, box.Max.Y, box.Max.Z}

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Entry point, or exit point when starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
