package window

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/roomstudio/internal/engine/input"
)

var scancodeKeys = map[sdl.Scancode]input.Key{
	sdl.SCANCODE_LEFT:      input.KeyLeft,
	sdl.SCANCODE_RIGHT:     input.KeyRight,
	sdl.SCANCODE_UP:        input.KeyUp,
	sdl.SCANCODE_DOWN:      input.KeyDown,
	sdl.SCANCODE_PAGEUP:    input.KeyPageUp,
	sdl.SCANCODE_PAGEDOWN:  input.KeyPageDown,
	sdl.SCANCODE_DELETE:    input.KeyDelete,
	sdl.SCANCODE_BACKSPACE: input.KeyBackspace,
	sdl.SCANCODE_ESCAPE:    input.KeyEscape,
	sdl.SCANCODE_A:         input.KeyA,
	sdl.SCANCODE_C:         input.KeyC,
	sdl.SCANCODE_F:         input.KeyF,
	sdl.SCANCODE_I:         input.KeyI,
	sdl.SCANCODE_L:         input.KeyL,
	sdl.SCANCODE_O:         input.KeyO,
	sdl.SCANCODE_P:         input.KeyP,
	sdl.SCANCODE_R:         input.KeyR,
	sdl.SCANCODE_S:         input.KeyS,
	sdl.SCANCODE_T:         input.KeyT,
	sdl.SCANCODE_F12:       input.KeyF12,
	sdl.SCANCODE_SPACE:     input.KeySpace,
}

func mods(m sdl.Keymod) input.Mod {
	var out input.Mod
	if m&sdl.KMOD_SHIFT != 0 {
		out |= input.ModShift
	}
	if m&(sdl.KMOD_CTRL|sdl.KMOD_GUI) != 0 {
		out |= input.ModCtrl
	}
	if m&sdl.KMOD_ALT != 0 {
		out |= input.ModAlt
	}
	return out
}

// PollEvents drains the SDL queue into buf and returns it.
// Keys the viewer does not use are dropped.
func PollEvents(buf []input.Event) []input.Event {
	buf = buf[:0]
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			buf = append(buf, input.Event{Type: input.EventQuit})

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				buf = append(buf, input.Event{
					Type:   input.EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			key, ok := scancodeKeys[e.Keysym.Scancode]
			if !ok {
				continue
			}
			typ := input.EventKeyDown
			if e.Type == sdl.KEYUP {
				typ = input.EventKeyUp
			}
			buf = append(buf, input.Event{Type: typ, Key: key, Mods: mods(sdl.GetModState())})

		case *sdl.MouseMotionEvent:
			buf = append(buf, input.Event{
				Type:   input.EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
			})

		case *sdl.MouseButtonEvent:
			typ := input.EventMouseDown
			if e.Type == sdl.MOUSEBUTTONUP {
				typ = input.EventMouseUp
			}
			buf = append(buf, input.Event{
				Type:   typ,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			})

		case *sdl.MouseWheelEvent:
			y := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				y = -y
			}
			buf = append(buf, input.Event{Type: input.EventMouseWheel, Wheel: y})

		case *sdl.DropEvent:
			if e.Type == sdl.DROPFILE {
				buf = append(buf, input.Event{Type: input.EventFileDrop, Path: e.File})
			}
		}
	}
	return buf
}
