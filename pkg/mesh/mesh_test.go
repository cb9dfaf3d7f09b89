package mesh

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"

	"github.com/Faultbox/roomstudio/pkg/math"
)

func unitCube(t *testing.T) *Mesh {
	t.Helper()
	m, err := NewBox(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}
	return m
}

func TestNewBox(t *testing.T) {
	m := unitCube(t)

	if m.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", m.TriangleCount())
	}
	if m.VertexCount() != 8 {
		t.Errorf("expected 8 vertices, got %d", m.VertexCount())
	}

	// Normals point away from the cube center.
	center := m.Center()
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Corners(i)
		mid := a.Add(b).Add(c).Scale(1.0 / 3.0)
		if m.Normal(i).Dot(mid.Sub(center)) <= 0 {
			t.Errorf("triangle %d normal %v points inward", i, m.Normal(i))
		}
		if l := m.Normal(i).Length(); l < 0.999 || l > 1.001 {
			t.Errorf("triangle %d normal length = %v, want 1", i, l)
		}
	}
}

func TestBoundsAndCenter(t *testing.T) {
	m := unitCube(t)

	if c := m.Center(); c != (math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}) {
		t.Errorf("Center() = %v, want [0.5 0.5 0.5]", c)
	}
	want := math32.Sqrt(3)
	if d := m.Diagonal(); math32.Abs(d-want) > 1e-6 {
		t.Errorf("Diagonal() = %v, want %v", d, want)
	}
}

func TestVolumetricCentroid(t *testing.T) {
	m, err := NewBox(math.Vec3{X: 2, Y: 2, Z: 2}, math.Vec3{X: 4, Y: 6, Z: 8})
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}

	c, ok := m.VolumetricCentroid()
	if !ok {
		t.Fatal("expected closed box to have a centroid")
	}
	if !c.ApproxEqual(math.Vec3{X: 3, Y: 4, Z: 5}, 1e-4) {
		t.Errorf("VolumetricCentroid() = %v, want [3 4 5]", c)
	}
}

func TestVolumetricCentroidOpenMesh(t *testing.T) {
	m, err := New(
		[]math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[][3]uint32{{0, 1, 2}},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := m.VolumetricCentroid(); ok {
		t.Error("expected flat mesh to have no volumetric centroid")
	}
}

func TestNewInvalidIndex(t *testing.T) {
	_, err := New(
		[]math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[][3]uint32{{0, 1, 2}, {0, 1, 3}, {4, 5, 6}},
	)
	if err == nil {
		t.Fatal("expected error for out-of-range indices")
	}
	if !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected error to be ErrInvalidInput class, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 reported triangles, got %d", n)
	}
}

func TestNewNonFiniteVertex(t *testing.T) {
	_, err := New(
		[]math.Vec3{{X: math32.NaN()}, {X: 1}, {Y: 1}},
		[][3]uint32{{0, 1, 2}},
	)
	if !errors.Is(err, ErrNonFiniteVertex) {
		t.Errorf("expected ErrNonFiniteVertex, got %v", err)
	}
}

func TestNewEmpty(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("expected ErrEmptyMesh, got %v", err)
	}
}

func TestDegenerateTriangle(t *testing.T) {
	m, err := New(
		[]math.Vec3{{X: 0}, {X: 1}, {X: 2}, {Y: 1}},
		[][3]uint32{{0, 1, 2}, {0, 1, 3}},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !m.IsDegenerate(0) {
		t.Error("collinear triangle should be degenerate")
	}
	if m.Normal(0) != (math.Vec3{}) {
		t.Errorf("degenerate normal = %v, want zero", m.Normal(0))
	}
	if m.IsDegenerate(1) {
		t.Error("triangle 1 should not be degenerate")
	}
}
