// Package simulation hands the placed entities and the room walls to an acoustic engine.
package simulation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/config"
	"github.com/Faultbox/roomstudio/internal/engine/audio"
	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/internal/scene"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// Request errors.
var (
	ErrNoListener = errors.New("simulation needs at least one listener")
	ErrNoSource   = errors.New("simulation needs at least one source with audio")
	ErrNoMesh     = errors.New("no model loaded")
)

// Params are the acoustic parameters passed through to the engine.
type Params struct {
	ScaleFactor      float32 `yaml:"scale_factor"`
	MaxOrder         int     `yaml:"max_order"`
	Rays             int     `yaml:"rays"`
	EnergyAbsorption float32 `yaml:"energy_absorption"`
	Scattering       float32 `yaml:"scattering"`
	SampleRate       int     `yaml:"sample_rate"`
}

// ParamsFromConfig copies the engine parameters out of the configuration.
func ParamsFromConfig(c config.SimulationConfig) Params {
	return Params{
		ScaleFactor:      c.ScaleFactor,
		MaxOrder:         c.MaxOrder,
		Rays:             c.Rays,
		EnergyAbsorption: c.EnergyAbsorption,
		Scattering:       c.Scattering,
		SampleRate:       c.SampleRate,
	}
}

// Listener is a microphone position in world units.
type Listener struct {
	ID       uint32     `yaml:"id"`
	Name     string     `yaml:"name"`
	Position [3]float32 `yaml:"position,flow"`
}

// Source is an emitter position in world units with its audio.
type Source struct {
	ID         uint32        `yaml:"id"`
	Name       string        `yaml:"name"`
	Position   [3]float32    `yaml:"position,flow"`
	Sound      string        `yaml:"sound"`
	Volume     float32       `yaml:"volume"`
	SampleRate int           `yaml:"sample_rate"`
	Duration   time.Duration `yaml:"duration"`
}

// Wall is one surface of the room as a triangle list into Request.Vertices.
type Wall struct {
	Surface   int         `yaml:"surface"`
	Triangles [][3]uint32 `yaml:"triangles,flow"`
}

// Request is everything an engine needs, detached from the live registry.
// Positions and vertices are raw world coordinates; the engine divides them
// by Params.ScaleFactor to get physical room units.
type Request struct {
	Created   time.Time    `yaml:"created"`
	Model     string       `yaml:"model,omitempty"`
	Params    Params       `yaml:"params"`
	Listeners []Listener   `yaml:"listeners"`
	Sources   []Source     `yaml:"sources"`
	Vertices  [][3]float32 `yaml:"vertices,flow"`
	Walls     []Wall       `yaml:"walls"`
}

// Input bundles what NewRequest reads.
type Input struct {
	Registry     *scene.Registry
	Mesh         *mesh.Mesh
	Segmentation *segment.Segmentation
	Params       Params
	AudioAsset   string // default sound for sources without their own
	Model        string
}

// NewRequest snapshots the registry, fills in default entities and probes
// every source's audio. Sources whose audio cannot be read are dropped and
// reported through log; the request fails only when no source remains.
func NewRequest(in Input, log *zap.Logger) (*Request, error) {
	if in.Mesh == nil || in.Segmentation == nil {
		return nil, ErrNoMesh
	}
	if in.Params.ScaleFactor <= 0 {
		return nil, fmt.Errorf("%w: scale factor %v", mesh.ErrInvalidInput, in.Params.ScaleFactor)
	}
	if log == nil {
		log = zap.NewNop()
	}

	snap := in.Registry.SnapshotWithDefaults(DefaultAnchor(in.Mesh), in.AudioAsset)
	if len(snap.Listeners) == 0 {
		return nil, ErrNoListener
	}

	req := &Request{
		Created: time.Now(),
		Model:   in.Model,
		Params:  in.Params,
	}
	if err := copier.CopyWithOption(&req.Listeners, &snap.Listeners, entityCopy); err != nil {
		return nil, fmt.Errorf("copy listeners: %w", err)
	}

	var skipped error
	for _, e := range snap.Sources {
		var src Source
		if err := copier.CopyWithOption(&src, &e, entityCopy); err != nil {
			return nil, fmt.Errorf("copy %s: %w", e.Name, err)
		}
		if src.Sound == "" {
			src.Sound = in.AudioAsset
		}
		info, err := audio.Probe(src.Sound)
		if err != nil {
			skipped = multierr.Append(skipped, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		src.SampleRate = info.SampleRate
		src.Duration = info.Duration
		req.Sources = append(req.Sources, src)
	}
	for _, err := range multierr.Errors(skipped) {
		log.Warn("skipping source", zap.Error(err))
	}
	if len(req.Sources) == 0 {
		if skipped != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoSource, skipped)
		}
		return nil, ErrNoSource
	}

	req.Vertices = make([][3]float32, in.Mesh.VertexCount())
	for i := range req.Vertices {
		req.Vertices[i] = vec(in.Mesh.Vertex(i))
	}
	for id, tris := range in.Segmentation.Walls() {
		w := Wall{Surface: id, Triangles: make([][3]uint32, 0, len(tris))}
		for _, t := range tris {
			if in.Mesh.IsDegenerate(t) {
				continue
			}
			w.Triangles = append(w.Triangles, in.Mesh.Triangle(t))
		}
		if len(w.Triangles) > 0 {
			req.Walls = append(req.Walls, w)
		}
	}

	return req, nil
}

func vec(p math.Vec3) [3]float32 {
	return [3]float32{p.X, p.Y, p.Z}
}

// entityCopy maps scene entities onto Listener and Source by field name.
var entityCopy = copier.Option{
	Converters: []copier.TypeConverter{{
		SrcType: math.Vec3{},
		DstType: [3]float32{},
		Fn: func(src interface{}) (interface{}, error) {
			p, ok := src.(math.Vec3)
			if !ok {
				return nil, fmt.Errorf("position has type %T", src)
			}
			return vec(p), nil
		},
	}},
}

// DefaultAnchor is where default entities are placed: the center of the
// enclosed volume for a closed mesh, the bounding-box center otherwise.
func DefaultAnchor(m *mesh.Mesh) math.Vec3 {
	if c, ok := m.VolumetricCentroid(); ok {
		return c
	}
	return m.Center()
}

// Pairs returns the number of listener/source output files a run produces.
func (r *Request) Pairs() int {
	return len(r.Listeners) * len(r.Sources)
}

// OutputName is the file an engine writes for one listener/source pair.
func OutputName(listener, source string) string {
	return fileName(listener) + "_from_" + fileName(source) + ".wav"
}

func fileName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
