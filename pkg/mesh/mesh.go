// Package mesh holds the immutable triangulated surface that every other viewer component reads.
package mesh

import (
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/multierr"

	"github.com/Faultbox/roomstudio/pkg/math"
)

// DegenerateArea is the triangle area below which a triangle has no usable normal.
const DegenerateArea = 1e-12

// Mesh errors.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidIndex    = fmt.Errorf("%w: triangle references missing vertex", ErrInvalidInput)
	ErrNonFiniteVertex = fmt.Errorf("%w: non-finite vertex", ErrInvalidInput)
	ErrEmptyMesh       = fmt.Errorf("%w: mesh has no triangles", ErrInvalidInput)
)

// Mesh is an indexed triangle mesh. It is read-only after New returns.
type Mesh struct {
	vertices  []math.Vec3
	triangles [][3]uint32
	normals   []math.Vec3
	areas     []float32
	bounds    math.AABB
}

// New validates the geometry and precomputes per-triangle normals.
// Every malformed triangle is reported in the returned error, not only the first.
func New(vertices []math.Vec3, triangles [][3]uint32) (*Mesh, error) {
	if len(triangles) == 0 {
		return nil, ErrEmptyMesh
	}

	var errs error
	for i, v := range vertices {
		if !v.IsFinite() {
			errs = multierr.Append(errs, fmt.Errorf("vertex %d: %w", i, ErrNonFiniteVertex))
		}
	}
	n := uint32(len(vertices))
	for i, tri := range triangles {
		if tri[0] >= n || tri[1] >= n || tri[2] >= n {
			errs = multierr.Append(errs, fmt.Errorf("triangle %d %v: %w", i, tri, ErrInvalidIndex))
		}
	}
	if errs != nil {
		return nil, errs
	}

	m := &Mesh{
		vertices:  append([]math.Vec3(nil), vertices...),
		triangles: append([][3]uint32(nil), triangles...),
		normals:   make([]math.Vec3, len(triangles)),
		areas:     make([]float32, len(triangles)),
		bounds:    math.EmptyAABB(),
	}

	for _, v := range m.vertices {
		m.bounds = m.bounds.Extend(v)
	}

	for i := range m.triangles {
		a, b, c := m.Corners(i)
		cross := b.Sub(a).Cross(c.Sub(a))
		area := cross.Length() * 0.5
		m.areas[i] = area
		if area > DegenerateArea {
			m.normals[i] = cross.Normalize()
		}
	}

	return m, nil
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.triangles)
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) math.Vec3 {
	return m.vertices[i]
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) [3]uint32 {
	return m.triangles[i]
}

// Normal returns the unit normal of triangle i, or the zero vector for a degenerate triangle.
func (m *Mesh) Normal(i int) math.Vec3 {
	return m.normals[i]
}

// Area returns the area of triangle i.
func (m *Mesh) Area(i int) float32 {
	return m.areas[i]
}

// IsDegenerate reports whether triangle i has (near) zero area.
func (m *Mesh) IsDegenerate(i int) bool {
	return m.areas[i] <= DegenerateArea
}

// Corners returns the three corner positions of triangle i.
func (m *Mesh) Corners(i int) (a, b, c math.Vec3) {
	t := m.triangles[i]
	return m.vertices[t[0]], m.vertices[t[1]], m.vertices[t[2]]
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() math.AABB {
	return m.bounds
}

// Center returns the bounding-box center, used as the room center.
func (m *Mesh) Center() math.Vec3 {
	return m.bounds.Center()
}

// Diagonal returns the length of the bounding-box diagonal.
func (m *Mesh) Diagonal() float32 {
	return m.bounds.Diagonal()
}

// VolumetricCentroid returns the center of mass of the enclosed volume.
// Returns false when the signed volume is near zero (open or flat mesh).
func (m *Mesh) VolumetricCentroid() (math.Vec3, bool) {
	var volume float64
	var sx, sy, sz float64
	for i := range m.triangles {
		a, b, c := m.Corners(i)
		v := float64(a.Dot(b.Cross(c))) / 6.0
		volume += v
		sx += float64(a.X+b.X+c.X) / 4.0 * v
		sy += float64(a.Y+b.Y+c.Y) / 4.0 * v
		sz += float64(a.Z+b.Z+c.Z) / 4.0 * v
	}

	d := float64(m.Diagonal())
	if gomath.Abs(volume) <= 1e-9*d*d*d {
		return math.Vec3{}, false
	}

	return math.Vec3{
		X: float32(sx / volume),
		Y: float32(sy / volume),
		Z: float32(sz / volume),
	}, true
}
