// Package lighting holds the light model the surface shader evaluates.
package lighting

import (
	"github.com/Faultbox/roomstudio/pkg/math"
)

// Headlight is a light sitting at the eye. Faces are lit from both sides so
// a closed room stays readable from inside. The shader computes
// Ambient + Diffuse*|n·toEye| per fragment.
type Headlight struct {
	Ambient float32
	Diffuse float32
}

// DefaultHeadlight returns the light the viewer starts with.
func DefaultHeadlight() Headlight {
	return New(0.35, 0.65)
}

// New clamps both terms to [0, 1] and scales them down together when their
// sum exceeds 1, so a face turned to the eye never brightens past its color.
func New(ambient, diffuse float32) Headlight {
	h := Headlight{
		Ambient: math.Clamp(ambient, 0, 1),
		Diffuse: math.Clamp(diffuse, 0, 1),
	}
	if sum := h.Ambient + h.Diffuse; sum > 1 {
		h.Ambient /= sum
		h.Diffuse /= sum
	}
	return h
}
