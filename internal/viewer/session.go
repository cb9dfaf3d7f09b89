// Package viewer connects the room model, its surfaces, the placed entities
// and the camera to user input.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/config"
	"github.com/Faultbox/roomstudio/internal/engine/camera"
	"github.com/Faultbox/roomstudio/internal/engine/input"
	"github.com/Faultbox/roomstudio/internal/engine/picking"
	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/internal/engine/texture"
	"github.com/Faultbox/roomstudio/internal/logger"
	"github.com/Faultbox/roomstudio/internal/scene"
	"github.com/Faultbox/roomstudio/internal/simulation"
	"github.com/Faultbox/roomstudio/pkg/formats"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// Session errors.
var (
	ErrNoModel     = errors.New("no model loaded")
	ErrNoOutputs   = errors.New("no simulation output to play")
	ErrNoSimulator = errors.New("no simulation runner")
)

// Mode decides what a left click on a surface does.
type Mode int

const (
	ModeSelect Mode = iota
	ModePlaceListener
	ModePlaceSource
)

func (m Mode) String() string {
	switch m {
	case ModePlaceListener:
		return "place listener"
	case ModePlaceSource:
		return "place source"
	default:
		return "select"
	}
}

// Action is a request HandleEvent leaves to the window owner.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionOpenModel
	ActionImportSound
	ActionScreenshot
)

// Changes reports what the renderer must refresh.
type Changes struct {
	Mesh      bool
	Materials bool
}

// Auditioner plays simulation output.
type Auditioner interface {
	Play(path string) error
	Stop()
	Pause()
	Resume()
	IsPlaying() bool
}

// Options are the session settings taken from the configuration.
type Options struct {
	FeatureAngleDeg    float32
	PickRadiusFraction float32
	MoveFraction       float32
	TransparentAlpha   float32
	MaxTextureSize     int
	Palette            [][3]float32

	// Camera; zero keeps the camera default
	FOVDeg              float32
	MinDistanceFraction float32
	DragSensitivity     float32
	ZoomStep            float32
}

// OptionsFromConfig copies the viewer settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FeatureAngleDeg:    cfg.Viewer.FeatureAngleDeg,
		PickRadiusFraction: cfg.Viewer.PickRadiusFraction,
		MoveFraction:       cfg.Viewer.MoveFraction,
		TransparentAlpha:   cfg.Viewer.TransparentAlpha,
		MaxTextureSize:     cfg.Viewer.MaxTextureSize,
		Palette:            append([][3]float32{cfg.Viewer.DefaultColor}, defaultPalette...),

		FOVDeg:              cfg.Viewer.FOVDeg,
		MinDistanceFraction: cfg.Viewer.MinDistance,
		DragSensitivity:     cfg.Viewer.DragSensitivity,
		ZoomStep:            cfg.Viewer.ZoomStep,
	}
}

var defaultPalette = [][3]float32{
	{0.95, 0.95, 0.92}, // plaster
	{0.72, 0.52, 0.34}, // wood
	{0.55, 0.55, 0.58}, // concrete
	{0.35, 0.45, 0.7},  // carpet
	{0.8, 0.3, 0.25},   // brick
}

// Session owns everything a loaded model needs. It is driven from the
// window thread; only the simulation runs elsewhere.
type Session struct {
	opts Options

	mesh  *mesh.Mesh
	graph *segment.EdgeGraph
	seg   *segment.Segmentation
	model string
	sound string

	registry *scene.Registry
	camera   *camera.OrbitCamera
	tracker  *input.Tracker
	viewport camera.Viewport

	mode            Mode
	selectedSurface int
	paletteIndex    map[int]int

	runner   *simulation.Runner
	params   simulation.Params
	player   Auditioner
	playNext int

	changes Changes
	log     *zap.Logger
}

// NewSession creates an empty session. runner and player may be nil.
func NewSession(opts Options, params simulation.Params, runner *simulation.Runner, player Auditioner, log *zap.Logger) *Session {
	log = logger.Named(log, "viewer")
	if len(opts.Palette) == 0 {
		opts.Palette = append([][3]float32{segment.DefaultColor}, defaultPalette...)
	}
	return &Session{
		opts:            opts,
		registry:        scene.NewRegistry(log),
		camera:          newCamera(opts),
		tracker:         input.NewTracker(),
		selectedSurface: -1,
		paletteIndex:    make(map[int]int),
		runner:          runner,
		params:          params,
		player:          player,
		log:             log,
	}
}

func newCamera(opts Options) *camera.OrbitCamera {
	c := camera.NewOrbitCamera()
	if opts.FOVDeg > 0 {
		c.FOV = opts.FOVDeg
	}
	if opts.MinDistanceFraction > 0 {
		c.MinDistanceFraction = opts.MinDistanceFraction
	}
	if opts.DragSensitivity > 0 {
		c.DragSensitivity = opts.DragSensitivity
	}
	if opts.ZoomStep > 0 {
		c.ZoomStep = opts.ZoomStep
	}
	return c
}

// LoadModel reads an STL file and loads it.
func (s *Session) LoadModel(path string) error {
	m, err := formats.LoadMesh(path)
	if err != nil {
		return err
	}
	s.LoadMesh(m, path)
	return nil
}

// LoadMesh segments m, fits the camera to it and clears the entities.
func (s *Session) LoadMesh(m *mesh.Mesh, name string) {
	s.mesh = m
	s.model = name
	s.resegment()

	s.camera.FitToBounds(m.Bounds())
	s.registry.Clear()
	if err := s.registry.SetStep(m.Diagonal() * s.opts.MoveFraction); err != nil {
		s.log.Warn("keeping previous move step", zap.Error(err))
	}
	s.mode = ModeSelect
	s.playNext = 0
	if s.player != nil {
		// Recordings of the previous room no longer match the model.
		s.player.Stop()
	}

	s.log.Info("model loaded",
		zap.String("model", name),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()),
		zap.Int("surfaces", len(s.seg.Surfaces)),
		zap.Int("feature_edges", s.graph.FeatureCount()),
	)
}

func (s *Session) resegment() {
	s.seg, s.graph = segment.FromMesh(s.mesh, s.opts.FeatureAngleDeg)
	s.selectedSurface = -1
	s.paletteIndex = make(map[int]int)
	s.changes.Mesh = true
}

// SetFeatureAngle re-segments the model with a new threshold in degrees.
// Surface appearances are reset.
func (s *Session) SetFeatureAngle(deg float32) error {
	if deg < 0 || deg > 180 {
		return fmt.Errorf("%w: feature angle %v", mesh.ErrInvalidInput, deg)
	}
	s.opts.FeatureAngleDeg = deg
	if s.mesh == nil {
		return nil
	}
	s.resegment()
	s.log.Info("resegmented", zap.Float32("angle", deg), zap.Int("surfaces", len(s.seg.Surfaces)))
	return nil
}

// SetSound sets the audio asset used by sources without their own.
func (s *Session) SetSound(path string) {
	s.sound = path
	s.log.Info("sound selected", zap.String("path", path))
}

// Sound returns the session audio asset.
func (s *Session) Sound() string { return s.sound }

// Mesh returns the loaded mesh, or nil.
func (s *Session) Mesh() *mesh.Mesh { return s.mesh }

// Segmentation returns the current surfaces, or nil.
func (s *Session) Segmentation() *segment.Segmentation { return s.seg }

// Registry returns the entity registry.
func (s *Session) Registry() *scene.Registry { return s.registry }

// Camera returns the orbit camera.
func (s *Session) Camera() *camera.OrbitCamera { return s.camera }

// Mode returns the click mode.
func (s *Session) Mode() Mode { return s.mode }

// SelectedSurface returns the highlighted surface, -1 for none.
func (s *Session) SelectedSurface() int { return s.selectedSurface }

// Viewport returns the area mouse coordinates refer to.
func (s *Session) Viewport() camera.Viewport { return s.viewport }

// SetViewport sets the area mouse coordinates refer to.
func (s *Session) SetViewport(vp camera.Viewport) { s.viewport = vp }

// TakeChanges returns and clears the pending renderer refreshes.
func (s *Session) TakeChanges() Changes {
	c := s.changes
	s.changes = Changes{}
	return c
}

// Title describes the session for the window title.
func (s *Session) Title() string {
	name := "no model"
	if s.model != "" {
		name = filepath.Base(s.model)
	}
	return fmt.Sprintf("RoomStudio - %s [%s]", name, s.mode)
}

// HandleEvent applies one input event.
func (s *Session) HandleEvent(ctx context.Context, e input.Event) Action {
	switch e.Type {
	case input.EventQuit:
		return ActionQuit

	case input.EventWindowResize:
		s.viewport.Width, s.viewport.Height = e.Width, e.Height

	case input.EventMouseDown, input.EventMouseMove, input.EventMouseUp:
		g := s.tracker.Feed(e)
		switch g.Kind {
		case input.GestureClick:
			if g.Button == input.ButtonLeft {
				s.Click(g.X, g.Y)
			}
		case input.GestureDrag:
			s.camera.HandleDrag(float32(g.DX), float32(g.DY))
		}

	case input.EventMouseWheel:
		s.camera.HandleWheel(e.Wheel)

	case input.EventFileDrop:
		s.handleDrop(e.Path)

	case input.EventKeyDown:
		return s.handleKey(ctx, e)
	}
	return ActionNone
}

var moveKeys = map[input.Key]scene.Axis{
	input.KeyLeft:     scene.AxisNegX,
	input.KeyRight:    scene.AxisPosX,
	input.KeyUp:       scene.AxisPosY,
	input.KeyDown:     scene.AxisNegY,
	input.KeyPageUp:   scene.AxisPosZ,
	input.KeyPageDown: scene.AxisNegZ,
}

func (s *Session) handleKey(ctx context.Context, e input.Event) Action {
	if axis, ok := moveKeys[e.Key]; ok {
		s.registry.Move(axis)
		return ActionNone
	}

	switch e.Key {
	case input.KeyDelete, input.KeyBackspace:
		s.registry.DeleteSelected()
	case input.KeyEscape:
		s.mode = ModeSelect
		s.registry.ClearSelection()
		s.selectedSurface = -1
	case input.KeyL:
		s.toggleMode(ModePlaceListener)
	case input.KeyS:
		s.toggleMode(ModePlaceSource)
	case input.KeyT:
		if s.seg != nil {
			on := s.seg.ToggleTransparency(s.opts.TransparentAlpha)
			s.changes.Materials = true
			s.log.Info("transparency toggled", zap.Bool("transparent", on))
		}
	case input.KeyR:
		if s.seg != nil {
			s.seg.ResetAppearance()
			s.paletteIndex = make(map[int]int)
			s.changes.Materials = true
			s.log.Info("appearance reset")
		}
	case input.KeyC:
		s.cycleSurfaceColor()
	case input.KeyF:
		if s.mesh != nil {
			s.camera.FitToBounds(s.mesh.Bounds())
		}
	case input.KeyP:
		if _, err := s.StartSimulation(ctx); err != nil {
			s.log.Error("simulation not started", zap.Error(err))
		}
	case input.KeyA:
		if _, err := s.PlayNextOutput(); err != nil {
			s.log.Warn("nothing played", zap.Error(err))
		}
	case input.KeySpace:
		s.TogglePause()
	case input.KeyF12:
		return ActionScreenshot
	case input.KeyO:
		if e.Mods&input.ModCtrl != 0 {
			return ActionOpenModel
		}
	case input.KeyI:
		return ActionImportSound
	}
	return ActionNone
}

func (s *Session) toggleMode(m Mode) {
	if s.mode == m {
		s.mode = ModeSelect
	} else {
		s.mode = m
	}
	s.log.Info("mode changed", zap.Stringer("mode", s.mode))
}

func (s *Session) handleDrop(path string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		if err := s.LoadModel(path); err != nil {
			s.log.Error("failed to load dropped model", zap.String("path", path), zap.Error(err))
		}
	case ".wav":
		s.SetSound(path)
	default:
		s.log.Warn("ignoring dropped file", zap.String("path", path))
	}
}

// Click picks at window coordinates and applies the result: placing in a
// place mode, otherwise selecting the entity or surface under the cursor.
func (s *Session) Click(x, y int) picking.Hit {
	if s.mesh == nil {
		return picking.Hit{}
	}
	ray, err := s.camera.ScreenPointToRay(float32(x), float32(y), s.viewport)
	if err != nil {
		s.log.Debug("no pick ray", zap.Int("x", x), zap.Int("y", y), zap.Error(err))
		return picking.Hit{}
	}
	radius := picking.PickRadius(s.mesh, s.opts.PickRadiusFraction)
	hit := picking.Pick(ray, s.mesh, s.seg, s.registry.Targets(), radius)
	s.apply(hit)
	return hit
}

func (s *Session) apply(hit picking.Hit) {
	if s.mode != ModeSelect && hit.Kind == picking.HitSurface {
		var err error
		if s.mode == ModePlaceListener {
			_, err = s.registry.Place(scene.KindListener, hit.Point)
		} else {
			_, err = s.registry.PlaceSource(hit.Point, "", 1)
		}
		if err != nil {
			s.log.Error("placement failed", zap.Error(err))
		}
		s.mode = ModeSelect
		return
	}

	switch hit.Kind {
	case picking.HitEntity:
		s.registry.SelectAt(hit)
		s.selectedSurface = -1
	case picking.HitSurface:
		s.registry.ClearSelection()
		s.selectedSurface = hit.Surface
		s.log.Info(fmt.Sprintf("selected surface %d at %s", hit.Surface, hit.Point))
	default:
		s.registry.ClearSelection()
		s.selectedSurface = -1
	}
}

func (s *Session) cycleSurfaceColor() {
	if s.selectedSurface < 0 || s.seg == nil {
		return
	}
	i := (s.paletteIndex[s.selectedSurface] + 1) % len(s.opts.Palette)
	if err := s.SetSurfaceColor(s.selectedSurface, s.opts.Palette[i]); err != nil {
		s.log.Error("color change failed", zap.Error(err))
		return
	}
	s.paletteIndex[s.selectedSurface] = i
}

// SetSurfaceColor paints a surface with a flat color.
func (s *Session) SetSurfaceColor(id int, color [3]float32) error {
	if s.seg == nil {
		return ErrNoModel
	}
	if err := s.seg.SetColor(id, color); err != nil {
		return err
	}
	s.changes.Materials = true
	return nil
}

// SetSurfaceTexture paints a surface with a decoded image, projected onto
// the surface's dominant plane.
func (s *Session) SetSurfaceTexture(id int, img image.Image) error {
	if s.seg == nil {
		return ErrNoModel
	}
	surf := s.seg.Surface(id)
	if surf == nil {
		return fmt.Errorf("surface %d: %w", id, segment.ErrUnknownSurface)
	}
	rgba, err := texture.ToRGBA(img, s.opts.MaxTextureSize)
	if err != nil {
		return err
	}
	if err := s.seg.SetTexture(id, rgba, texture.PlanarUV(s.mesh, surf.Triangles)); err != nil {
		return err
	}
	s.changes.Materials = true
	return nil
}

// StartSimulation hands the current entities to the simulation runner and
// returns the run directory.
func (s *Session) StartSimulation(ctx context.Context) (string, error) {
	if s.runner == nil {
		return "", ErrNoSimulator
	}
	if s.mesh == nil {
		return "", ErrNoModel
	}
	req, err := simulation.NewRequest(simulation.Input{
		Registry:     s.registry,
		Mesh:         s.mesh,
		Segmentation: s.seg,
		Params:       s.params,
		AudioAsset:   s.sound,
		Model:        s.model,
	}, s.log)
	if err != nil {
		return "", err
	}
	s.playNext = 0
	if s.player != nil {
		s.player.Stop()
	}
	return s.runner.Start(ctx, req)
}

// PlayNextOutput plays the recordings of the last finished simulation in turn.
func (s *Session) PlayNextOutput() (string, error) {
	if s.player == nil || s.runner == nil {
		return "", ErrNoOutputs
	}
	res, ok := s.runner.Last()
	if !ok || len(res.Outputs) == 0 {
		return "", ErrNoOutputs
	}
	out := res.Outputs[s.playNext%len(res.Outputs)]
	s.playNext++
	if err := s.player.Play(out.Path); err != nil {
		return "", err
	}
	s.log.Info(fmt.Sprintf("playing %s from %s", out.Listener, out.Source), zap.String("path", out.Path))
	return out.Path, nil
}

// TogglePause pauses the recording being auditioned, or resumes a paused one.
func (s *Session) TogglePause() {
	if s.player == nil {
		return
	}
	if s.player.IsPlaying() {
		s.player.Pause()
		s.log.Info("playback paused")
		return
	}
	s.player.Resume()
	if s.player.IsPlaying() {
		s.log.Info("playback resumed")
	}
}
