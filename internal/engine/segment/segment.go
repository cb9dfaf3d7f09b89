package segment

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// Segmentation errors.
var (
	ErrUnknownSurface  = fmt.Errorf("%w: unknown surface", mesh.ErrInvalidInput)
	ErrUVCount         = fmt.Errorf("%w: uv count does not match surface triangles", mesh.ErrInvalidInput)
	ErrNilImage        = fmt.Errorf("%w: nil texture image", mesh.ErrInvalidInput)
	ErrBrokenPartition = errors.New("surfaces do not partition the triangles")
)

// Surface is one connected region of triangles bounded by feature edges.
type Surface struct {
	ID         int
	Triangles  []int // ascending
	Appearance Appearance
}

// Segmentation is the surface list of a mesh plus the triangle -> surface map.
type Segmentation struct {
	Surfaces        []Surface
	TriangleSurface []int
}

// Segment flood-fills the smooth adjacency of g. Seeds are taken in ascending
// triangle order, so surface ids are reproducible for identical input.
func Segment(g *EdgeGraph) *Segmentation {
	n := g.TriangleCount()
	s := &Segmentation{
		TriangleSurface: make([]int, n),
	}
	for i := range s.TriangleSurface {
		s.TriangleSurface[i] = -1
	}

	var sizes []int
	queue := make([]int, 0, 64)
	for seed := 0; seed < n; seed++ {
		if s.TriangleSurface[seed] >= 0 {
			continue
		}
		id := len(sizes)
		s.TriangleSurface[seed] = id
		queue = append(queue[:0], seed)
		size := 0

		for head := 0; head < len(queue); head++ {
			size++
			for _, nb := range g.SmoothNeighbors(queue[head]) {
				if s.TriangleSurface[nb] < 0 {
					s.TriangleSurface[nb] = id
					queue = append(queue, nb)
				}
			}
		}
		sizes = append(sizes, size)
	}

	// A second linear pass lists each surface's triangles in ascending order.
	s.Surfaces = make([]Surface, len(sizes))
	for id, size := range sizes {
		s.Surfaces[id] = Surface{
			ID:         id,
			Triangles:  make([]int, 0, size),
			Appearance: DefaultAppearance(),
		}
	}
	for t, id := range s.TriangleSurface {
		s.Surfaces[id].Triangles = append(s.Surfaces[id].Triangles, t)
	}

	return s
}

// FromMesh runs feature detection and segmentation in one step.
func FromMesh(m *mesh.Mesh, thresholdDeg float32) (*Segmentation, *EdgeGraph) {
	g := DetectFeatures(m, thresholdDeg)
	return Segment(g), g
}

// SurfaceOf returns the surface owning triangle t.
func (s *Segmentation) SurfaceOf(t int) int {
	return s.TriangleSurface[t]
}

// Surface returns a pointer to surface id, or nil.
func (s *Segmentation) Surface(id int) *Surface {
	if id < 0 || id >= len(s.Surfaces) {
		return nil
	}
	return &s.Surfaces[id]
}

// Validate checks that surfaces partition the triangle set exactly.
func (s *Segmentation) Validate() error {
	owner := make([]int, len(s.TriangleSurface))
	for i := range owner {
		owner[i] = -1
	}
	for id, surf := range s.Surfaces {
		if surf.ID != id {
			return fmt.Errorf("%w: surface %d has id %d", ErrBrokenPartition, id, surf.ID)
		}
		for _, t := range surf.Triangles {
			if t < 0 || t >= len(owner) {
				return fmt.Errorf("%w: surface %d lists triangle %d", ErrBrokenPartition, id, t)
			}
			if owner[t] >= 0 {
				return fmt.Errorf("%w: triangle %d in surfaces %d and %d", ErrBrokenPartition, t, owner[t], id)
			}
			owner[t] = id
		}
	}
	for t, id := range owner {
		if id < 0 {
			return fmt.Errorf("%w: triangle %d has no surface", ErrBrokenPartition, t)
		}
		if s.TriangleSurface[t] != id {
			return fmt.Errorf("%w: triangle %d maps to %d, listed in %d", ErrBrokenPartition, t, s.TriangleSurface[t], id)
		}
	}
	return nil
}

// Area sums the triangle areas of a surface.
func (s *Segmentation) Area(m *mesh.Mesh, id int) float32 {
	surf := s.Surface(id)
	if surf == nil {
		return 0
	}
	var a float32
	for _, t := range surf.Triangles {
		a += m.Area(t)
	}
	return a
}

// Walls returns the triangle lists of all surfaces, one wall per surface.
func (s *Segmentation) Walls() [][]int {
	walls := make([][]int, len(s.Surfaces))
	for i, surf := range s.Surfaces {
		walls[i] = append([]int(nil), surf.Triangles...)
	}
	return walls
}

// SetColor paints a surface with a flat color, dropping any texture.
func (s *Segmentation) SetColor(id int, color [3]float32) error {
	surf := s.Surface(id)
	if surf == nil {
		return fmt.Errorf("surface %d: %w", id, ErrUnknownSurface)
	}
	surf.Appearance.Material = Flat{Color: color}
	return nil
}

// SetTexture paints a surface with an already decoded image.
func (s *Segmentation) SetTexture(id int, img *image.RGBA, uv [][3][2]float32) error {
	surf := s.Surface(id)
	if surf == nil {
		return fmt.Errorf("surface %d: %w", id, ErrUnknownSurface)
	}
	if img == nil {
		return ErrNilImage
	}
	if len(uv) != len(surf.Triangles) {
		return fmt.Errorf("surface %d: %d uvs for %d triangles: %w", id, len(uv), len(surf.Triangles), ErrUVCount)
	}
	surf.Appearance.Material = Textured{Image: img, UV: uv}
	return nil
}

// ClearTexture reverts a textured surface to the default flat color.
func (s *Segmentation) ClearTexture(id int) error {
	surf := s.Surface(id)
	if surf == nil {
		return fmt.Errorf("surface %d: %w", id, ErrUnknownSurface)
	}
	if _, ok := surf.Appearance.Material.(Textured); ok {
		surf.Appearance.Material = Flat{Color: DefaultColor}
	}
	return nil
}

// ToggleTransparency flips every surface between opaque and alpha.
// Returns true if the surfaces are now transparent.
func (s *Segmentation) ToggleTransparency(alpha float32) bool {
	makeTransparent := true
	for _, surf := range s.Surfaces {
		if surf.Appearance.Alpha < 1 {
			makeTransparent = false
			break
		}
	}
	for i := range s.Surfaces {
		if makeTransparent {
			s.Surfaces[i].Appearance.Alpha = alpha
		} else {
			s.Surfaces[i].Appearance.Alpha = 1
		}
	}
	return makeTransparent
}

// ResetAppearance restores every surface to the default opaque flat color.
func (s *Segmentation) ResetAppearance() {
	for i := range s.Surfaces {
		s.Surfaces[i].Appearance = DefaultAppearance()
	}
}
