package scene

import (
	"errors"
	gomath "math"
	"math/rand"
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/roomstudio/internal/engine/picking"
	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

func newObserved() (*Registry, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewRegistry(zap.New(core)), logs
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

func TestPlaceLogsPosition(t *testing.T) {
	r, logs := newObserved()

	e, err := r.Place(KindListener, math.Vec3{X: 0.5, Y: 0.5, Z: 1})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if e.ID != 1 || e.Name != "Listener 1" {
		t.Errorf("got id %d name %q, want 1 \"Listener 1\"", e.ID, e.Name)
	}

	src, err := r.PlaceSource(math.Vec3{X: -1, Y: 2.25}, "clap.wav", 0.8)
	if err != nil {
		t.Fatalf("PlaceSource failed: %v", err)
	}
	if src.Sound != "clap.wav" || src.Volume != 0.8 {
		t.Errorf("source fields = %q %v", src.Sound, src.Volume)
	}

	want := []string{
		"placed listener 1 at [0.500 0.500 1.000]",
		"placed source 2 at [-1.000 2.250 0.000]",
	}
	got := messages(logs)
	if len(got) != len(want) {
		t.Fatalf("log lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPlaceRejectsNonFinite(t *testing.T) {
	r, logs := newObserved()

	tests := []math.Vec3{
		{X: math32.NaN()},
		{Y: math32.Inf(1)},
		{Z: math32.Inf(-1)},
	}
	for _, p := range tests {
		_, err := r.Place(KindSource, p)
		if !errors.Is(err, ErrNonFinitePosition) {
			t.Errorf("Place(%v) error = %v, want ErrNonFinitePosition", p, err)
		}
		if !errors.Is(err, mesh.ErrInvalidInput) {
			t.Errorf("Place(%v) error not in invalid input class", p)
		}
	}
	if _, err := r.Place(Kind(9), math.Vec3{}); !errors.Is(err, mesh.ErrInvalidInput) {
		t.Errorf("unknown kind error = %v", err)
	}
	if _, err := r.PlaceSource(math.Vec3{}, "", -1); !errors.Is(err, mesh.ErrInvalidInput) {
		t.Errorf("negative volume error = %v", err)
	}

	if n := len(r.Entities()); n != 0 {
		t.Errorf("expected no entities, got %d", n)
	}
	if logs.Len() != 0 {
		t.Errorf("rejected placements should not log, got %q", messages(logs))
	}
}

func TestIDsNeverReused(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	a, _ := r.Place(KindListener, math.Vec3{})
	b, _ := r.Place(KindSource, math.Vec3{})
	r.Select(b.ID)
	if _, ok := r.DeleteSelected(); !ok {
		t.Fatal("DeleteSelected should remove the selected source")
	}
	r.Clear()
	c, _ := r.Place(KindSource, math.Vec3{})

	seen := map[uint32]bool{a.ID: true, b.ID: true}
	if seen[c.ID] {
		t.Errorf("id %d reused", c.ID)
	}
	if c.ID != 3 {
		t.Errorf("expected id 3, got %d", c.ID)
	}
}

func TestSelectionExclusive(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	for i := 0; i < 6; i++ {
		kind := KindListener
		if i%2 == 1 {
			kind = KindSource
		}
		if _, err := r.Place(kind, math.Vec3{X: float32(i)}); err != nil {
			t.Fatalf("Place failed: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var hit picking.Hit
		switch rng.Intn(3) {
		case 0:
			hit = picking.Hit{Kind: picking.HitEntity, Entity: uint32(rng.Intn(8))}
		case 1:
			hit = picking.Hit{Kind: picking.HitSurface, Entity: uint32(rng.Intn(8))}
		}
		r.SelectAt(hit)

		selected := 0
		for _, e := range r.Entities() {
			if e.Selected {
				selected++
			}
		}
		if selected > 1 {
			t.Fatalf("step %d: %d entities selected", i, selected)
		}
	}

	r.SelectAt(picking.Hit{Kind: picking.HitEntity, Entity: 4})
	if e, ok := r.Selected(); !ok || e.ID != 4 {
		t.Errorf("Selected() = %v, %v; want entity 4", e.ID, ok)
	}
	r.SelectAt(picking.Hit{})
	if _, ok := r.Selected(); ok {
		t.Error("selecting nothing should clear the selection")
	}
}

func TestMoveStep(t *testing.T) {
	r, logs := newObserved()
	if err := r.SetStep(2 * DefaultMoveFraction); err != nil {
		t.Fatalf("SetStep failed: %v", err)
	}

	e, _ := r.Place(KindListener, math.Vec3{X: 1, Y: 1, Z: 1})
	r.Select(e.ID)

	tests := []struct {
		axis Axis
		want math.Vec3
	}{
		{AxisPosX, math.Vec3{X: 1.1, Y: 1, Z: 1}},
		{AxisPosX, math.Vec3{X: 1.2, Y: 1, Z: 1}},
		{AxisNegY, math.Vec3{X: 1.2, Y: 0.9, Z: 1}},
		{AxisPosZ, math.Vec3{X: 1.2, Y: 0.9, Z: 1.1}},
		{AxisNegX, math.Vec3{X: 1.1, Y: 0.9, Z: 1.1}},
		{AxisPosY, math.Vec3{X: 1.1, Y: 1, Z: 1.1}},
		{AxisNegZ, math.Vec3{X: 1.1, Y: 1, Z: 1}},
	}
	for i, tt := range tests {
		moved, ok := r.Move(tt.axis)
		if !ok {
			t.Fatalf("move %d: nothing moved", i)
		}
		if !moved.Position.ApproxEqual(tt.want, 1e-5) {
			t.Errorf("move %d: position %v, want %v", i, moved.Position, tt.want)
		}
	}

	last := logs.All()[logs.Len()-1].Message
	if last != "moved listener 1 to [1.100 1.000 1.000]" {
		t.Errorf("last log line = %q", last)
	}
}

func TestMoveWithoutSelection(t *testing.T) {
	r, logs := newObserved()
	e, _ := r.Place(KindSource, math.Vec3{X: 3})
	logs.TakeAll()

	if _, ok := r.Move(AxisPosZ); ok {
		t.Error("Move without selection should be a no-op")
	}
	if _, ok := r.DeleteSelected(); ok {
		t.Error("DeleteSelected without selection should be a no-op")
	}
	got, _ := r.Get(e.ID)
	if got.Position != e.Position {
		t.Errorf("position changed to %v", got.Position)
	}
	if logs.Len() != 0 {
		t.Errorf("no-ops should not log, got %q", messages(logs))
	}
}

func TestMoveByRejectsNonFinite(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	e, _ := r.Place(KindListener, math.Vec3{})
	r.Select(e.ID)

	if _, _, err := r.MoveBy(math.Vec3{X: math32.NaN()}); !errors.Is(err, ErrNonFinitePosition) {
		t.Errorf("expected ErrNonFinitePosition, got %v", err)
	}
	if _, _, err := r.MoveBy(math.Vec3{X: 3e38}); err != nil {
		t.Fatalf("MoveBy failed: %v", err)
	}
	if _, _, err := r.MoveBy(math.Vec3{X: 3e38}); !errors.Is(err, ErrNonFinitePosition) {
		t.Errorf("overflowing move error = %v", err)
	}
	if got, _ := r.Get(e.ID); !got.Position.IsFinite() {
		t.Errorf("stored position %v is not finite", got.Position)
	}
	if err := r.SetStep(math32.Inf(1)); !errors.Is(err, mesh.ErrInvalidInput) {
		t.Errorf("SetStep(Inf) error = %v", err)
	}
}

func TestDefaultsFor(t *testing.T) {
	center := math.Vec3{X: 1, Y: 2, Z: 3}

	tests := []struct {
		name      string
		listeners int
		sources   int
		asset     string
		want      []Kind
	}{
		{"empty no asset", 0, 0, "", []Kind{KindListener}},
		{"empty with asset", 0, 0, "clap.wav", []Kind{KindListener, KindSource}},
		{"listener only", 1, 0, "clap.wav", []Kind{KindSource}},
		{"source only", 0, 1, "", []Kind{KindListener}},
		{"complete", 2, 1, "clap.wav", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(zap.NewNop())
			for i := 0; i < tt.listeners; i++ {
				_, _ = r.Place(KindListener, math.Vec3{})
			}
			for i := 0; i < tt.sources; i++ {
				_, _ = r.Place(KindSource, math.Vec3{})
			}
			before := len(r.Entities())

			got := r.DefaultsFor(center, tt.asset)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d defaults, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Kind != tt.want[i] || e.ID != 0 || e.Position != center {
					t.Errorf("default %d = %+v", i, e)
				}
			}
			if len(r.Entities()) != before {
				t.Error("defaults must not be stored in the registry")
			}
		})
	}
}

func TestSnapshotDefaultsUseSnapshotCounts(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	center := math.Vec3{X: 1, Y: 1, Z: 1}

	snap := r.Snapshot()
	_, _ = r.Place(KindListener, math.Vec3{})
	_, _ = r.Place(KindSource, math.Vec3{})

	got := snap.WithDefaults(center, "clap.wav")
	if len(got.Listeners) != 1 || got.Listeners[0].ID != 0 || got.Listeners[0].Position != center {
		t.Errorf("listeners = %+v, want one default", got.Listeners)
	}
	if len(got.Sources) != 1 || got.Sources[0].ID != 0 || got.Sources[0].Sound != "clap.wav" {
		t.Errorf("sources = %+v, want one default", got.Sources)
	}
	if len(snap.Listeners) != 0 || len(snap.Sources) != 0 {
		t.Error("WithDefaults modified the snapshot")
	}
}

func TestSnapshotWithDefaultsLogs(t *testing.T) {
	r, logs := newObserved()
	_, _ = r.PlaceSource(math.Vec3{X: 2}, "a.wav", 1)

	snap := r.SnapshotWithDefaults(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, "clap.wav")
	if len(snap.Listeners) != 1 || len(snap.Sources) != 1 || snap.Sources[0].ID == 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if logs.FilterMessage("using default listener 0 at [0.500 0.500 0.500]").Len() != 1 {
		t.Errorf("missing default line in %q", messages(logs))
	}
}

func TestPlaceIDsExhausted(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.nextID = gomath.MaxUint32

	last, err := r.Place(KindListener, math.Vec3{})
	if err != nil {
		t.Fatalf("Place with the last id failed: %v", err)
	}
	if last.ID != gomath.MaxUint32 {
		t.Errorf("id = %d, want %d", last.ID, uint32(gomath.MaxUint32))
	}

	if _, err := r.Place(KindSource, math.Vec3{}); !errors.Is(err, ErrIDsExhausted) {
		t.Errorf("got %v, want ErrIDsExhausted", err)
	}
	if _, err := r.PlaceSource(math.Vec3{}, "a.wav", 1); !errors.Is(err, ErrIDsExhausted) {
		t.Errorf("got %v, want ErrIDsExhausted", err)
	}
	if n := len(r.Entities()); n != 1 {
		t.Errorf("registry has %d entities, want 1", n)
	}
	if _, ok := r.Get(0); ok {
		t.Error("id 0 must never be handed out")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	l, _ := r.Place(KindListener, math.Vec3{X: 1})
	_, _ = r.PlaceSource(math.Vec3{X: 2}, "a.wav", 1)
	r.Select(l.ID)

	snap := r.Snapshot()
	if len(snap.Listeners) != 1 || len(snap.Sources) != 1 {
		t.Fatalf("snapshot has %d listeners %d sources", len(snap.Listeners), len(snap.Sources))
	}
	if !snap.Listeners[0].Selected {
		t.Error("snapshot should carry the selection flag")
	}

	r.Move(AxisPosX)
	if snap.Listeners[0].Position.X != 1 {
		t.Errorf("snapshot changed after move: %v", snap.Listeners[0].Position)
	}
}

func TestSnapshotConcurrentWithEdits(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	e, _ := r.Place(KindListener, math.Vec3{})
	r.Select(e.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.Move(AxisPosX)
			_, _ = r.Place(KindSource, math.Vec3{Y: float32(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			snap := r.Snapshot()
			if len(snap.Listeners) != 1 {
				t.Errorf("expected 1 listener, got %d", len(snap.Listeners))
				return
			}
		}
	}()
	wg.Wait()
}

func TestCubeEndToEnd(t *testing.T) {
	m, err := mesh.NewBox(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}
	seg, _ := segment.FromMesh(m, 30)
	if len(seg.Surfaces) != 6 {
		t.Fatalf("expected 6 surfaces, got %d", len(seg.Surfaces))
	}

	r, logs := newObserved()
	if err := r.SetStep(m.Diagonal() * DefaultMoveFraction); err != nil {
		t.Fatalf("SetStep failed: %v", err)
	}

	ray, err := picking.NewRay(math.Vec3{X: 0.5, Y: 0.5, Z: 10}, math.Vec3{Z: -1})
	if err != nil {
		t.Fatalf("NewRay failed: %v", err)
	}
	hit := picking.Pick(ray, m, seg, r.Targets(), picking.PickRadius(m, picking.DefaultPickFraction))
	if hit.Kind != picking.HitSurface {
		t.Fatalf("expected surface hit, got %s", hit.Kind)
	}

	l, err := r.Place(KindListener, hit.Point)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if math32.Abs(l.Position.Z-1) > 1e-5 {
		t.Errorf("listener z = %v, want top face z 1", l.Position.Z)
	}

	// The same ray now lands on the listener.
	hit = picking.Pick(ray, m, seg, r.Targets(), picking.PickRadius(m, picking.DefaultPickFraction))
	if hit.Kind != picking.HitEntity || hit.Entity != l.ID {
		t.Fatalf("expected entity %d, got %s %d", l.ID, hit.Kind, hit.Entity)
	}
	r.SelectAt(hit)

	moved, _ := r.Move(AxisPosZ)
	if dz := moved.Position.Z - 1; math32.Abs(dz-0.05*math32.Sqrt(3)) > 1e-5 {
		t.Errorf("move distance = %v, want 5%% of diagonal", dz)
	}

	if _, ok := r.DeleteSelected(); !ok {
		t.Fatal("DeleteSelected failed")
	}
	if n := r.Count(KindListener); n != 0 {
		t.Fatalf("expected 0 listeners, got %d", n)
	}

	defaults := r.DefaultsFor(m.Center(), "")
	if len(defaults) != 1 || defaults[0].Kind != KindListener {
		t.Fatalf("expected one default listener, got %+v", defaults)
	}
	if defaults[0].Position != (math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}) {
		t.Errorf("default listener at %v, want cube center", defaults[0].Position)
	}

	if logs.FilterMessage("placed listener 1 at [0.500 0.500 1.000]").Len() != 1 {
		t.Errorf("missing placement line in %q", messages(logs))
	}
}
