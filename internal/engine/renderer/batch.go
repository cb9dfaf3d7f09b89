package renderer

import (
	"image"
	"sort"

	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/internal/scene"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// FloatsPerVertex is the interleaved layout: position, normal, texcoord.
const FloatsPerVertex = 8

// Batch is one surface ready for upload: non-indexed triangles with flat normals.
type Batch struct {
	Surface  int
	Vertices []float32 // FloatsPerVertex per vertex, 3 vertices per triangle
	Color    [3]float32
	Alpha    float32
	Texture  *image.RGBA // nil for flat surfaces
}

// VertexCount returns the number of vertices in the batch.
func (b *Batch) VertexCount() int {
	return len(b.Vertices) / FloatsPerVertex
}

// Transparent reports whether the batch must be drawn after opaque ones.
func (b *Batch) Transparent() bool {
	return b.Alpha < 1
}

// BuildBatches turns every surface into a batch. Degenerate triangles are
// skipped since they cover no pixels. Texture coordinates come from the
// surface material and are zero for flat surfaces.
func BuildBatches(m *mesh.Mesh, seg *segment.Segmentation) []Batch {
	batches := make([]Batch, len(seg.Surfaces))
	for i := range seg.Surfaces {
		surf := &seg.Surfaces[i]
		b := Batch{
			Surface:  surf.ID,
			Vertices: make([]float32, 0, len(surf.Triangles)*3*FloatsPerVertex),
		}
		applyAppearance(&b, surf.Appearance)

		var uv [][3][2]float32
		if tex, ok := surf.Appearance.Material.(segment.Textured); ok {
			uv = tex.UV
		}

		for k, t := range surf.Triangles {
			if m.IsDegenerate(t) {
				continue
			}
			n := m.Normal(t)
			a, bb, c := m.Corners(t)
			for j, p := range [3]math.Vec3{a, bb, c} {
				var st [2]float32
				if uv != nil {
					st = uv[k][j]
				}
				b.Vertices = append(b.Vertices, p.X, p.Y, p.Z, n.X, n.Y, n.Z, st[0], st[1])
			}
		}
		batches[i] = b
	}
	return batches
}

func applyAppearance(b *Batch, a segment.Appearance) {
	b.Color = a.BaseColor()
	b.Alpha = a.Alpha
	b.Texture = nil
	if tex, ok := a.Material.(segment.Textured); ok {
		b.Texture = tex.Image
	}
}

// DrawOrder returns batch indices with opaque batches first, then
// transparent ones, each group in surface order.
func DrawOrder(batches []Batch) []int {
	order := make([]int, len(batches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return !batches[order[i]].Transparent() && batches[order[j]].Transparent()
	})
	return order
}

// Marker colors.
var (
	ListenerColor = [4]float32{0.2, 0.4, 1.0, 1}
	SourceColor   = [4]float32{1.0, 0.25, 0.2, 1}
	SelectedColor = [4]float32{1.0, 0.9, 0.1, 1}
)

// FloatsPerMarker is the marker layout: position, rgba.
const FloatsPerMarker = 7

// MarkerColor returns the color an entity is drawn with.
func MarkerColor(e scene.Entity) [4]float32 {
	switch {
	case e.Selected:
		return SelectedColor
	case e.Kind == scene.KindSource:
		return SourceColor
	default:
		return ListenerColor
	}
}

// BuildMarkers lays out one point per entity.
func BuildMarkers(entities []scene.Entity) []float32 {
	out := make([]float32, 0, len(entities)*FloatsPerMarker)
	for _, e := range entities {
		c := MarkerColor(e)
		p := e.Position
		out = append(out, p.X, p.Y, p.Z, c[0], c[1], c[2], c[3])
	}
	return out
}
