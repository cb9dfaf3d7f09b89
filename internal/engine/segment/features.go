// Package segment splits a mesh into surfaces bounded by sharp edges.
package segment

import (
	"sort"

	"github.com/chewxy/math32"

	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// DefaultFeatureAngle is the dihedral angle (degrees) above which an edge is sharp.
const DefaultFeatureAngle = 30.0

// EdgeKey identifies an undirected edge by its vertex indices, A < B.
type EdgeKey struct {
	A, B uint32
}

// MakeEdgeKey orders the two indices.
func MakeEdgeKey(a, b uint32) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{A: a, B: b}
}

// EdgeKind describes how many triangles share an edge.
type EdgeKind uint8

const (
	EdgeBoundary    EdgeKind = iota // one triangle
	EdgeInterior                    // two triangles
	EdgeNonManifold                 // more than two
)

// String returns the kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeBoundary:
		return "boundary"
	case EdgeInterior:
		return "interior"
	default:
		return "non-manifold"
	}
}

// Edge is derived adjacency data for one undirected edge.
type Edge struct {
	Key       EdgeKey
	Triangles []int   // adjacent triangles, ascending
	Dihedral  float32 // degrees between the two normals; only meaningful for interior edges
	Feature   bool
}

// Kind classifies the edge by its adjacency count.
func (e *Edge) Kind() EdgeKind {
	switch len(e.Triangles) {
	case 1:
		return EdgeBoundary
	case 2:
		return EdgeInterior
	default:
		return EdgeNonManifold
	}
}

// EdgeGraph is the edge table of a mesh plus the smooth triangle adjacency it induces.
type EdgeGraph struct {
	threshold float32
	edges     []Edge
	index     map[EdgeKey]int
	smooth    [][]int // triangle -> smooth neighbours, ascending
}

// DetectFeatures builds the edge graph of m and classifies every edge against
// the threshold angle in degrees. An edge is a feature edge when it is a boundary,
// non-manifold, touches a degenerate triangle, or its normals differ by more than
// the threshold.
func DetectFeatures(m *mesh.Mesh, thresholdDeg float32) *EdgeGraph {
	g := &EdgeGraph{
		threshold: thresholdDeg,
		index:     make(map[EdgeKey]int, m.TriangleCount()*3/2),
		smooth:    make([][]int, m.TriangleCount()),
	}

	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		for k := 0; k < 3; k++ {
			key := MakeEdgeKey(tri[k], tri[(k+1)%3])
			if key.A == key.B {
				// Collapsed edge of a degenerate triangle; it joins nothing.
				continue
			}
			idx, ok := g.index[key]
			if !ok {
				idx = len(g.edges)
				g.index[key] = idx
				g.edges = append(g.edges, Edge{Key: key})
			}
			e := &g.edges[idx]
			// A triangle lists the same edge once even if it repeats a vertex pair.
			if n := len(e.Triangles); n == 0 || e.Triangles[n-1] != t {
				e.Triangles = append(e.Triangles, t)
			}
		}
	}

	for i := range g.edges {
		e := &g.edges[i]
		e.Feature = true
		if e.Kind() != EdgeInterior {
			continue
		}
		t0, t1 := e.Triangles[0], e.Triangles[1]
		if m.IsDegenerate(t0) || m.IsDegenerate(t1) {
			continue
		}
		e.Dihedral = angleBetween(m.Normal(t0), m.Normal(t1))
		if e.Dihedral > thresholdDeg {
			continue
		}
		e.Feature = false
		g.smooth[t0] = append(g.smooth[t0], t1)
		g.smooth[t1] = append(g.smooth[t1], t0)
	}

	for _, n := range g.smooth {
		sort.Ints(n)
	}

	return g
}

// angleBetween returns the angle in degrees between two unit vectors.
func angleBetween(a, b math.Vec3) float32 {
	cos := math.Clamp(a.Dot(b), -1, 1)
	return math.Degrees(math32.Acos(cos))
}

// Threshold returns the angle the graph was classified with.
func (g *EdgeGraph) Threshold() float32 {
	return g.threshold
}

// Edges returns every edge in first-seen order.
func (g *EdgeGraph) Edges() []Edge {
	return g.edges
}

// Edge looks up an edge by key.
func (g *EdgeGraph) Edge(key EdgeKey) (Edge, bool) {
	idx, ok := g.index[key]
	if !ok {
		return Edge{}, false
	}
	return g.edges[idx], true
}

// IsFeature reports whether the edge is sharp. Unknown edges are treated as features.
func (g *EdgeGraph) IsFeature(key EdgeKey) bool {
	e, ok := g.Edge(key)
	return !ok || e.Feature
}

// FeatureCount returns the number of feature edges.
func (g *EdgeGraph) FeatureCount() int {
	n := 0
	for i := range g.edges {
		if g.edges[i].Feature {
			n++
		}
	}
	return n
}

// SmoothNeighbors returns the triangles reachable from t across a non-feature edge.
func (g *EdgeGraph) SmoothNeighbors(t int) []int {
	return g.smooth[t]
}

// TriangleCount returns the number of triangles in the source mesh.
func (g *EdgeGraph) TriangleCount() int {
	return len(g.smooth)
}
