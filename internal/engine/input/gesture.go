package input

// DefaultDragThreshold is how far, in pixels, the mouse may move between
// press and release and still count as a click.
const DefaultDragThreshold = 4

// GestureKind classifies what a mouse event amounted to.
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureClick
	GestureDrag
)

// Gesture is the outcome of feeding one event to a Tracker.
type Gesture struct {
	Kind   GestureKind
	Button uint8
	X, Y   int // click position, or current position while dragging
	DX, DY int // drag delta since the previous drag gesture
}

// Tracker tells clicks from drags for one button at a time.
type Tracker struct {
	Threshold int

	button   uint8
	startX   int
	startY   int
	lastX    int
	lastY    int
	dragging bool
}

// NewTracker creates a tracker with the default threshold.
func NewTracker() *Tracker {
	return &Tracker{Threshold: DefaultDragThreshold}
}

// Pressed returns the button being held, 0 for none.
func (t *Tracker) Pressed() uint8 {
	return t.button
}

// Feed consumes a mouse event. Other event types return GestureNone.
func (t *Tracker) Feed(e Event) Gesture {
	switch e.Type {
	case EventMouseDown:
		if t.button != 0 {
			return Gesture{}
		}
		t.button = e.Button
		t.startX, t.startY = e.MouseX, e.MouseY
		t.lastX, t.lastY = e.MouseX, e.MouseY
		t.dragging = false

	case EventMouseMove:
		if t.button == 0 {
			return Gesture{}
		}
		if !t.dragging {
			dx, dy := e.MouseX-t.startX, e.MouseY-t.startY
			if dx*dx+dy*dy <= t.Threshold*t.Threshold {
				return Gesture{}
			}
			t.dragging = true
		}
		g := Gesture{
			Kind:   GestureDrag,
			Button: t.button,
			X:      e.MouseX,
			Y:      e.MouseY,
			DX:     e.MouseX - t.lastX,
			DY:     e.MouseY - t.lastY,
		}
		t.lastX, t.lastY = e.MouseX, e.MouseY
		return g

	case EventMouseUp:
		if e.Button != t.button {
			return Gesture{}
		}
		wasDrag := t.dragging
		t.button = 0
		t.dragging = false
		if wasDrag {
			return Gesture{}
		}
		return Gesture{Kind: GestureClick, Button: e.Button, X: e.MouseX, Y: e.MouseY}
	}
	return Gesture{}
}
