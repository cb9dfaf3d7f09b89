package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 0, 4}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}

	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Errorf("zero vector normalized to %v, want zero", z)
	}
}

func TestVec3IsFinite(t *testing.T) {
	tests := []struct {
		v    Vec3
		want bool
	}{
		{Vec3{1, 2, 3}, true},
		{Vec3{math32.NaN(), 0, 0}, false},
		{Vec3{0, math32.Inf(1), 0}, false},
		{Vec3{0, 0, math32.Inf(-1)}, false},
	}

	for _, tt := range tests {
		if got := tt.v.IsFinite(); got != tt.want {
			t.Errorf("IsFinite(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestVec3String(t *testing.T) {
	got := Vec3{0.5, -1, 2.25}.String()
	want := "[0.500 -1.000 2.250]"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAABB(t *testing.T) {
	box := EmptyAABB()
	if !box.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}
	if box.Diagonal() != 0 {
		t.Errorf("empty diagonal = %v, want 0", box.Diagonal())
	}

	box = box.Extend(Vec3{0, 0, 0}).Extend(Vec3{1, 2, 2})
	if box.IsEmpty() {
		t.Fatal("extended box should not be empty")
	}
	if c := box.Center(); c != (Vec3{0.5, 1, 1}) {
		t.Errorf("Center() = %v, want [0.5 1 1]", c)
	}
	if d := box.Diagonal(); d != 3 {
		t.Errorf("Diagonal() = %v, want 3", d)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float32
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}
