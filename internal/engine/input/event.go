// Package input describes viewer input events independently of the window system.
package input

// EventType identifies an event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
	EventFileDrop
)

// Key is a key the viewer reacts to.
type Key int

const (
	KeyNone Key = iota
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyDelete
	KeyBackspace
	KeyEscape
	KeyA
	KeyC
	KeyF
	KeyI
	KeyL
	KeyO
	KeyP
	KeyR
	KeyS
	KeyT
	KeyF12
	KeySpace
)

var keyNames = map[Key]string{
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
	KeyDelete:    "Delete",
	KeyBackspace: "Backspace",
	KeyEscape:    "Escape",
	KeyA:         "A",
	KeyC:         "C",
	KeyF:         "F",
	KeyI:         "I",
	KeyL:         "L",
	KeyO:         "O",
	KeyP:         "P",
	KeyR:         "R",
	KeyS:         "S",
	KeyT:         "T",
	KeyF12:       "F12",
	KeySpace:     "Space",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "None"
}

// Mod is a bit set of held modifier keys.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
)

// Mouse buttons, numbered like SDL.
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 3
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    Key
	Mods   Mod
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
	Wheel  float32 // notches, positive away from the user
	Path   string  // dropped file
}
