package renderer

import "github.com/Faultbox/roomstudio/internal/engine/camera"

// State is the slice of GL state a frame changes.
type State struct {
	Viewport  camera.Viewport
	DepthTest bool
	Blend     bool
}

// StateBackend reads and writes draw state. The GL implementation talks to
// the current context; tests use a recorder.
type StateBackend interface {
	Current() State
	Apply(State)
}

// Acquire saves the current state, applies s and returns the function that
// restores the saved state.
func Acquire(b StateBackend, s State) (release func()) {
	prev := b.Current()
	b.Apply(s)
	return func() { b.Apply(prev) }
}

// Frame runs draw with s applied. The previous state is restored on every
// exit path, including a panic in draw.
func Frame(b StateBackend, s State, draw func()) {
	release := Acquire(b, s)
	defer release()
	draw()
}
