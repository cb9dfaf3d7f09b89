package segment

import "image"

// DefaultColor is the light blue every surface starts with.
var DefaultColor = [3]float32{0.68, 0.85, 0.9}

// Material is how a surface is painted: either Flat or Textured.
type Material interface {
	isMaterial()
}

// Flat paints a surface with a single color.
type Flat struct {
	Color [3]float32
}

// Textured paints a surface with an image. UV holds one coordinate triple per
// surface triangle, in the surface's triangle order.
type Textured struct {
	Image *image.RGBA
	UV    [][3][2]float32
}

func (Flat) isMaterial()     {}
func (Textured) isMaterial() {}

// Appearance is the display state of one surface.
type Appearance struct {
	Material Material
	Alpha    float32
}

// DefaultAppearance returns an opaque light-blue appearance.
func DefaultAppearance() Appearance {
	return Appearance{Material: Flat{Color: DefaultColor}, Alpha: 1}
}

// BaseColor returns the flat color, or white for textured surfaces so the texture is not tinted.
func (a Appearance) BaseColor() [3]float32 {
	switch m := a.Material.(type) {
	case Flat:
		return m.Color
	case Textured:
		return [3]float32{1, 1, 1}
	default:
		return DefaultColor
	}
}
