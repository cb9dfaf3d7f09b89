package picking

import (
	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// DefaultPickFraction sizes entity pick spheres relative to the model diagonal.
const DefaultPickFraction = 0.02

// HitKind tells what a pick landed on.
type HitKind uint8

const (
	HitNone HitKind = iota
	HitSurface
	HitEntity
)

// String returns the kind name.
func (k HitKind) String() string {
	switch k {
	case HitSurface:
		return "surface"
	case HitEntity:
		return "entity"
	default:
		return "none"
	}
}

// Hit is the result of a pick. A zero Hit means nothing was hit.
type Hit struct {
	Kind     HitKind
	T        float32
	Point    math.Vec3
	Triangle int
	Surface  int        // -1 when no segmentation was supplied
	Bary     [3]float32 // weights of the triangle corners
	Entity   uint32
}

// Target is a pickable point entity.
type Target struct {
	ID       uint32
	Position math.Vec3
}

// PickRadius returns the pick sphere radius for a model.
func PickRadius(m *mesh.Mesh, fraction float32) float32 {
	return m.Diagonal() * fraction
}

// PickSurface finds the nearest triangle along the ray.
func PickSurface(r Ray, m *mesh.Mesh, seg *segment.Segmentation) Hit {
	if m == nil {
		return Hit{}
	}
	// Whole-mesh early out; the margin keeps faces lying on the box inside it.
	if _, ok := r.IntersectAABB(m.Bounds().Expand(MinT)); !ok {
		return Hit{}
	}

	best := Hit{}
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Corners(i)
		t, u, v, ok := r.IntersectTriangle(a, b, c)
		if !ok {
			continue
		}
		if best.Kind == HitNone || t < best.T {
			best = Hit{
				Kind:     HitSurface,
				T:        t,
				Point:    r.At(t),
				Triangle: i,
				Surface:  -1,
				Bary:     [3]float32{1 - u - v, u, v},
			}
		}
	}

	if best.Kind == HitSurface && seg != nil {
		best.Surface = seg.SurfaceOf(best.Triangle)
	}
	return best
}

// PickEntity finds the nearest entity whose pick sphere the ray crosses.
func PickEntity(r Ray, targets []Target, radius float32) Hit {
	best := Hit{}
	for _, tgt := range targets {
		t, ok := r.IntersectSphere(tgt.Position, radius)
		if !ok {
			continue
		}
		if best.Kind == HitNone || t < best.T {
			best = Hit{
				Kind:     HitEntity,
				T:        t,
				Point:    tgt.Position,
				Triangle: -1,
				Surface:  -1,
				Entity:   tgt.ID,
			}
		}
	}
	return best
}

// Pick tests entities first; any entity hit wins over the surface behind or under it.
func Pick(r Ray, m *mesh.Mesh, seg *segment.Segmentation, targets []Target, radius float32) Hit {
	if hit := PickEntity(r, targets, radius); hit.Kind == HitEntity {
		return hit
	}
	return PickSurface(r, m, seg)
}
