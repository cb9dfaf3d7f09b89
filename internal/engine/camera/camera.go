// Package camera provides the orbit camera used to inspect a room model.
package camera

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roomstudio/internal/engine/picking"
	"github.com/Faultbox/roomstudio/pkg/math"
)

// Up is the world up axis. Room models are Z-up.
var Up = math.Vec3{Z: 1}

// Viewport is a pixel rectangle of the window, origin at the bottom-left as in GL.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// Aspect returns width / height, or 1 for an empty viewport.
func (v Viewport) Aspect() float32 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// OrbitCamera orbits around a pivot point.
type OrbitCamera struct {
	Pivot math.Vec3

	// Spherical coordinates, angles in degrees
	Heading  float32
	Pitch    float32
	Distance float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MaxPitch    float32

	// Projection
	FOV  float32 // vertical, degrees
	Near float32
	Far  float32

	// Sensitivity
	DragSensitivity     float32 // degrees per pixel
	ZoomStep            float32 // fraction of distance per wheel notch
	MinDistanceFraction float32 // of the model diagonal, applied by FitToBounds
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Heading:             35,
		Pitch:               35,
		Distance:            5,
		MinDistance:         0.01,
		MaxDistance:         1000,
		MaxPitch:            89,
		FOV:                 45,
		Near:                0.005,
		Far:                 2000,
		DragSensitivity:     0.3,
		ZoomStep:            0.1,
		MinDistanceFraction: 0.01,
	}
}

// Orbit adds heading and pitch deltas in degrees. Non-finite deltas are ignored.
func (c *OrbitCamera) Orbit(dHeading, dPitch float32) {
	if !math.IsFinite(dHeading) || !math.IsFinite(dPitch) {
		return
	}
	c.Heading = math32.Mod(c.Heading+dHeading, 360)
	c.Pitch = math.Clamp(c.Pitch+dPitch, -c.MaxPitch, c.MaxPitch)
}

// Zoom adds delta to the distance and clamps it to [MinDistance, MaxDistance].
func (c *OrbitCamera) Zoom(delta float32) {
	if !math.IsFinite(delta) {
		return
	}
	c.Distance = math.Clamp(c.Distance+delta, c.MinDistance, c.MaxDistance)
}

// HandleDrag orbits by a mouse drag in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Orbit(-deltaX*c.DragSensitivity, deltaY*c.DragSensitivity)
}

// HandleWheel zooms by wheel notches; positive moves closer.
func (c *OrbitCamera) HandleWheel(notches float32) {
	factor := 1 - notches*c.ZoomStep
	if factor < 0.1 {
		factor = 0.1
	}
	c.Zoom(c.Distance * (factor - 1))
}

// FitToBounds centers the pivot on the box and scales distance limits and clip planes to it.
func (c *OrbitCamera) FitToBounds(box math.AABB) {
	if box.IsEmpty() {
		return
	}
	diag := box.Diagonal()
	if diag <= 0 {
		diag = 1
	}

	c.Pivot = box.Center()
	c.MinDistance = diag * c.MinDistanceFraction
	c.MaxDistance = diag * 50
	c.Near = c.MinDistance * 0.5
	c.Far = c.MaxDistance + diag
	c.Distance = math.Clamp(diag*1.5, c.MinDistance, c.MaxDistance)
	c.Heading = 35
	c.Pitch = 35
}

// Direction returns the unit vector from the pivot towards the eye.
func (c *OrbitCamera) Direction() math.Vec3 {
	h := math.Radians(c.Heading)
	p := math.Radians(c.Pitch)
	cp := math32.Cos(p)
	return math.Vec3{
		X: cp * math32.Cos(h),
		Y: cp * math32.Sin(h),
		Z: math32.Sin(p),
	}
}

// Eye returns the camera position in world space.
func (c *OrbitCamera) Eye() math.Vec3 {
	return c.Pivot.Add(c.Direction().Scale(c.Distance))
}

// ViewTransform returns the look-at matrix for this camera.
func (c *OrbitCamera) ViewTransform() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye().MGL(), c.Pivot.MGL(), Up.MGL())
}

// Projection returns the perspective matrix for the given aspect ratio.
func (c *OrbitCamera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// ScreenPointToRay turns a cursor position into a world-space ray from the eye.
// x and y are pixels from the viewport's top-left corner.
func (c *OrbitCamera) ScreenPointToRay(x, y float32, vp Viewport) (picking.Ray, error) {
	view := c.ViewTransform()
	proj := c.Projection(vp.Aspect())
	winY := float32(vp.Height) - y

	far, err := mgl32.UnProject(mgl32.Vec3{x, winY, 1}, view, proj, 0, 0, vp.Width, vp.Height)
	if err != nil {
		return picking.Ray{}, fmt.Errorf("unproject (%v, %v): %w", x, y, err)
	}
	near, err := mgl32.UnProject(mgl32.Vec3{x, winY, 0}, view, proj, 0, 0, vp.Width, vp.Height)
	if err != nil {
		return picking.Ray{}, fmt.Errorf("unproject (%v, %v): %w", x, y, err)
	}

	return picking.NewRay(c.Eye(), math.FromMGL(far.Sub(near)))
}
