package mesh

import "github.com/Faultbox/roomstudio/pkg/math"

// boxTriangles lists two outward-facing triangles per face in the order
// -Z, +Z, -Y, +Y, -X, +X. Corner i sits at (i&1, i>>1&1, i>>2&1) of the box.
var boxTriangles = [][3]uint32{
	{0, 2, 1}, {1, 2, 3}, // -Z
	{4, 5, 6}, {5, 7, 6}, // +Z
	{0, 1, 4}, {1, 5, 4}, // -Y
	{2, 6, 3}, {3, 6, 7}, // +Y
	{0, 4, 2}, {2, 4, 6}, // -X
	{1, 3, 5}, {3, 7, 5}, // +X
}

// NewBox builds a closed 12-triangle box spanning min..max.
// The viewer shows it as a placeholder room when no model has been loaded.
func NewBox(min, max math.Vec3) (*Mesh, error) {
	vertices := make([]math.Vec3, 8)
	for i := range vertices {
		v := min
		if i&1 != 0 {
			v.X = max.X
		}
		if i&2 != 0 {
			v.Y = max.Y
		}
		if i&4 != 0 {
			v.Z = max.Z
		}
		vertices[i] = v
	}
	return New(vertices, boxTriangles)
}
