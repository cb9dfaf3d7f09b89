// Package scene holds the listeners and sources placed in a room model.
package scene

import (
	"fmt"
	"strings"

	"github.com/Faultbox/roomstudio/pkg/math"
)

// Kind represents the type of entity.
type Kind uint8

const (
	KindListener Kind = iota
	KindSource
)

// String returns the lower-case kind name used in log lines.
func (k Kind) String() string {
	switch k {
	case KindListener:
		return "listener"
	case KindSource:
		return "source"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Title returns the capitalised kind name used in entity names.
func (k Kind) Title() string {
	s := k.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Entity is a listener or a sound source anchored in the room.
type Entity struct {
	ID       uint32
	Kind     Kind
	Name     string
	Position math.Vec3
	Selected bool

	// Sources only
	Sound  string  // audio asset path, empty means the session default
	Volume float32 // linear gain
}

// FileName returns the name with spaces replaced, safe for output file names.
func (e Entity) FileName() string {
	return strings.ReplaceAll(e.Name, " ", "_")
}

// Axis is one of the six directions an entity can be nudged along.
type Axis uint8

const (
	AxisPosX Axis = iota
	AxisNegX
	AxisPosY
	AxisNegY
	AxisPosZ
	AxisNegZ
)

// Vector returns the unit vector of the axis.
func (a Axis) Vector() math.Vec3 {
	switch a {
	case AxisPosX:
		return math.Vec3{X: 1}
	case AxisNegX:
		return math.Vec3{X: -1}
	case AxisPosY:
		return math.Vec3{Y: 1}
	case AxisNegY:
		return math.Vec3{Y: -1}
	case AxisPosZ:
		return math.Vec3{Z: 1}
	case AxisNegZ:
		return math.Vec3{Z: -1}
	default:
		return math.Vec3{}
	}
}
