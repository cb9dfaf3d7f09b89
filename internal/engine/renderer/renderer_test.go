package renderer

import (
	"image"
	"testing"

	"github.com/Faultbox/roomstudio/internal/engine/camera"
	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/internal/scene"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

func unitCube(t *testing.T) (*mesh.Mesh, *segment.Segmentation) {
	t.Helper()
	m, err := mesh.NewBox(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}
	seg, _ := segment.FromMesh(m, segment.DefaultFeatureAngle)
	return m, seg
}

func TestBuildBatchesCube(t *testing.T) {
	m, seg := unitCube(t)
	batches := BuildBatches(m, seg)

	if len(batches) != 6 {
		t.Fatalf("got %d batches, want 6", len(batches))
	}
	for i, b := range batches {
		if b.Surface != i {
			t.Errorf("batch %d has surface %d", i, b.Surface)
		}
		if b.VertexCount() != 6 {
			t.Errorf("batch %d has %d vertices, want 6", i, b.VertexCount())
		}
		if b.Color != segment.DefaultColor || b.Alpha != 1 || b.Texture != nil {
			t.Errorf("batch %d appearance = %v %v %v", i, b.Color, b.Alpha, b.Texture)
		}
	}

	// Surface 1 is the top face: every normal is +Z and every z is 1.
	top := batches[1]
	for v := 0; v < top.VertexCount(); v++ {
		f := top.Vertices[v*FloatsPerVertex:]
		if f[2] != 1 {
			t.Errorf("top vertex %d has z %v", v, f[2])
		}
		if f[3] != 0 || f[4] != 0 || f[5] != 1 {
			t.Errorf("top vertex %d normal = %v", v, f[3:6])
		}
	}
}

func TestBuildBatchesSkipsDegenerate(t *testing.T) {
	verts := []math.Vec3{{}, {X: 1}, {Y: 1}, {X: 2}}
	m, err := mesh.New(verts, [][3]uint32{{0, 1, 2}, {0, 1, 3}})
	if err != nil {
		t.Fatalf("mesh.New failed: %v", err)
	}
	seg, _ := segment.FromMesh(m, segment.DefaultFeatureAngle)

	total := 0
	for _, b := range BuildBatches(m, seg) {
		total += b.VertexCount()
	}
	if total != 3 {
		t.Errorf("got %d vertices, want 3", total)
	}
}

func TestBuildBatchesMaterials(t *testing.T) {
	m, seg := unitCube(t)
	red := [3]float32{1, 0, 0}
	if err := seg.SetColor(0, red); err != nil {
		t.Fatalf("SetColor failed: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	uv := [][3][2]float32{{{0, 0}, {1, 0}, {0, 1}}, {{1, 0}, {1, 1}, {0, 1}}}
	if err := seg.SetTexture(2, img, uv); err != nil {
		t.Fatalf("SetTexture failed: %v", err)
	}
	seg.ToggleTransparency(0.35)

	batches := BuildBatches(m, seg)
	if batches[0].Color != red {
		t.Errorf("surface 0 color = %v", batches[0].Color)
	}
	if batches[2].Texture != img || batches[2].Color != [3]float32{1, 1, 1} {
		t.Errorf("surface 2 texture not applied")
	}
	// Second vertex of the first triangle carries uv (1, 0).
	f := batches[2].Vertices[FloatsPerVertex:]
	if f[6] != 1 || f[7] != 0 {
		t.Errorf("texcoord = %v, want [1 0]", f[6:8])
	}
	for i, b := range batches {
		if b.Alpha != 0.35 || !b.Transparent() {
			t.Errorf("batch %d alpha = %v", i, b.Alpha)
		}
	}
}

func TestDrawOrder(t *testing.T) {
	batches := []Batch{
		{Surface: 0, Alpha: 0.5},
		{Surface: 1, Alpha: 1},
		{Surface: 2, Alpha: 0.2},
		{Surface: 3, Alpha: 1},
	}
	want := []int{1, 3, 0, 2}
	got := DrawOrder(batches)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DrawOrder = %v, want %v", got, want)
		}
	}
}

func TestMarkers(t *testing.T) {
	entities := []scene.Entity{
		{ID: 1, Kind: scene.KindListener, Position: math.Vec3{X: 1, Y: 2, Z: 3}},
		{ID: 2, Kind: scene.KindSource, Position: math.Vec3{X: 4}},
		{ID: 3, Kind: scene.KindSource, Selected: true},
	}

	tests := []struct {
		e    scene.Entity
		want [4]float32
	}{
		{entities[0], ListenerColor},
		{entities[1], SourceColor},
		{entities[2], SelectedColor},
	}
	for _, tt := range tests {
		if got := MarkerColor(tt.e); got != tt.want {
			t.Errorf("MarkerColor(%d) = %v, want %v", tt.e.ID, got, tt.want)
		}
	}

	data := BuildMarkers(entities)
	if len(data) != 3*FloatsPerMarker {
		t.Fatalf("got %d floats", len(data))
	}
	if data[0] != 1 || data[1] != 2 || data[2] != 3 {
		t.Errorf("first marker position = %v", data[:3])
	}
	if data[FloatsPerMarker] != 4 {
		t.Errorf("second marker x = %v", data[FloatsPerMarker])
	}
}

// recorder is a StateBackend that remembers every applied state.
type recorder struct {
	current State
	applied []State
}

func (r *recorder) Current() State { return r.current }

func (r *recorder) Apply(s State) {
	r.current = s
	r.applied = append(r.applied, s)
}

func TestFrameRestoresState(t *testing.T) {
	prev := State{Viewport: camera.Viewport{Width: 1280, Height: 720}, Blend: true}
	frame := State{Viewport: camera.Viewport{X: 10, Y: 20, Width: 300, Height: 200}, DepthTest: true}

	tests := []struct {
		name string
		draw func(*testing.T, *recorder)
	}{
		{"normal", func(t *testing.T, r *recorder) {
			if r.current != frame {
				t.Errorf("state during draw = %+v", r.current)
			}
		}},
		{"early return on empty mesh", func(t *testing.T, r *recorder) {
			batches := BuildBatches(&mesh.Mesh{}, &segment.Segmentation{})
			if len(batches) == 0 {
				return
			}
			t.Error("expected no batches")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{current: prev}
			Frame(r, frame, func() { tt.draw(t, r) })

			if r.current != prev {
				t.Errorf("state after frame = %+v, want %+v", r.current, prev)
			}
			if len(r.applied) != 2 {
				t.Errorf("applied %d states, want 2", len(r.applied))
			}
		})
	}
}

func TestFrameRestoresOnPanic(t *testing.T) {
	prev := State{Viewport: camera.Viewport{Width: 640, Height: 480}}
	r := &recorder{current: prev}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		Frame(r, State{DepthTest: true}, func() { panic("draw failed") })
	}()

	if r.current != prev {
		t.Errorf("state after panic = %+v, want %+v", r.current, prev)
	}
}
