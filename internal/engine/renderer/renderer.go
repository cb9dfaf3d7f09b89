// Package renderer draws segmented surfaces and entity markers with OpenGL.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/engine/camera"
	"github.com/Faultbox/roomstudio/internal/engine/lighting"
	"github.com/Faultbox/roomstudio/internal/engine/segment"
	"github.com/Faultbox/roomstudio/internal/engine/shader"
	"github.com/Faultbox/roomstudio/internal/logger"
	"github.com/Faultbox/roomstudio/internal/scene"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// Config holds renderer configuration.
type Config struct {
	ClearColor [3]float32
	MarkerSize float32 // pixels
	Light      lighting.Headlight
}

// DefaultConfig returns a dark background and 14px markers.
func DefaultConfig() Config {
	return Config{
		ClearColor: [3]float32{0.1, 0.1, 0.15},
		MarkerSize: 14,
		Light:      lighting.DefaultHeadlight(),
	}
}

// FrameInput is everything one frame needs. The renderer keeps no reference to it.
type FrameInput struct {
	Viewport   camera.Viewport
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        math.Vec3
	Entities   []scene.Entity
	Highlight  int // surface id drawn highlighted, -1 for none
}

type gpuBatch struct {
	Batch
	vao, vbo uint32
	tex      uint32
	count    int32
}

// Renderer owns the GL objects for one loaded mesh.
// IMPORTANT: Must be created and used on the thread owning the GL context.
type Renderer struct {
	cfg Config

	surfaces *shader.Program
	markers  *shader.Program

	batches []gpuBatch

	markerVAO uint32
	markerVBO uint32
	markerCap int // floats

	state glState
	log   *zap.Logger
}

// New initializes OpenGL and compiles the programs.
func New(cfg Config, log *zap.Logger) (*Renderer, error) {
	r := &Renderer{
		cfg: cfg,
		log: logger.Named(log, "renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.DepthFunc(gl.LESS)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.ClearColor(cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2], 1.0)

	var err error
	if r.surfaces, err = shader.Compile("surface", surfaceVertexShader, surfaceFragmentShader); err != nil {
		return nil, err
	}
	if r.markers, err = shader.Compile("marker", markerVertexShader, markerFragmentShader); err != nil {
		r.surfaces.Delete()
		return nil, err
	}

	gl.GenVertexArrays(1, &r.markerVAO)
	gl.GenBuffers(1, &r.markerVBO)
	gl.BindVertexArray(r.markerVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.markerVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, FloatsPerMarker*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 4, gl.FLOAT, false, FloatsPerMarker*4, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	return r, nil
}

// Close releases every GL object.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.clearBatches()
	if r.markerVAO != 0 {
		gl.DeleteVertexArrays(1, &r.markerVAO)
	}
	if r.markerVBO != 0 {
		gl.DeleteBuffers(1, &r.markerVBO)
	}
	if r.surfaces != nil {
		r.surfaces.Delete()
	}
	if r.markers != nil {
		r.markers.Delete()
	}
}

func (r *Renderer) clearBatches() {
	for i := range r.batches {
		b := &r.batches[i]
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		if b.tex != 0 {
			gl.DeleteTextures(1, &b.tex)
		}
	}
	r.batches = nil
}

// Upload replaces the drawn mesh with m, one buffer per surface.
func (r *Renderer) Upload(m *mesh.Mesh, seg *segment.Segmentation) {
	r.clearBatches()

	built := BuildBatches(m, seg)
	r.batches = make([]gpuBatch, len(built))
	for i, b := range built {
		g := &r.batches[i]
		g.Batch = b
		g.count = int32(b.VertexCount())

		gl.GenVertexArrays(1, &g.vao)
		gl.BindVertexArray(g.vao)
		gl.GenBuffers(1, &g.vbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
		if len(b.Vertices) > 0 {
			gl.BufferData(gl.ARRAY_BUFFER, len(b.Vertices)*4, unsafe.Pointer(&b.Vertices[0]), gl.DYNAMIC_DRAW)
		}

		stride := int32(FloatsPerVertex * 4)
		gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, nil)
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(3*4)))
		gl.EnableVertexAttribArray(1)
		gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(6*4)))
		gl.EnableVertexAttribArray(2)

		if b.Texture != nil {
			g.tex = uploadTexture(b)
		}
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	r.log.Debug("mesh uploaded", zap.Int("surfaces", len(r.batches)), zap.Int("triangles", m.TriangleCount()))
}

// UpdateMaterials refreshes colors, transparency and textures after a
// material change without rebuilding the vertex arrays.
func (r *Renderer) UpdateMaterials(m *mesh.Mesh, seg *segment.Segmentation) {
	built := BuildBatches(m, seg)
	if len(built) != len(r.batches) {
		r.Upload(m, seg)
		return
	}
	for i, b := range built {
		g := &r.batches[i]
		texChanged := b.Texture != g.Texture
		g.Batch = b

		// Texture coordinates live in the vertex data.
		gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
		if len(b.Vertices) > 0 {
			gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(b.Vertices)*4, unsafe.Pointer(&b.Vertices[0]))
		}
		if texChanged {
			if g.tex != 0 {
				gl.DeleteTextures(1, &g.tex)
				g.tex = 0
			}
			if b.Texture != nil {
				g.tex = uploadTexture(b)
			}
		}
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func uploadTexture(b Batch) uint32 {
	img := b.Texture
	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(img.Bounds().Dx()), int32(img.Bounds().Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texID
}

// Draw renders one frame into f.Viewport. Prior viewport and
// depth/blend state are restored when it returns.
func (r *Renderer) Draw(f FrameInput) {
	Frame(&r.state, State{Viewport: f.Viewport, DepthTest: true}, func() {
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		if len(r.batches) == 0 {
			return
		}

		viewProj := f.Projection.Mul4(f.View)
		r.drawSurfaces(viewProj, f.Eye, f.Highlight)
		r.drawMarkers(viewProj, f.Entities)
	})
}

func (r *Renderer) drawSurfaces(viewProj mgl32.Mat4, eye math.Vec3, highlight int) {
	p := r.surfaces
	p.Use()
	gl.UniformMatrix4fv(p.Uniform("uViewProj"), 1, false, &viewProj[0])
	gl.Uniform3f(p.Uniform("uEye"), eye.X, eye.Y, eye.Z)
	gl.Uniform1f(p.Uniform("uAmbient"), r.cfg.Light.Ambient)
	gl.Uniform1f(p.Uniform("uDiffuse"), r.cfg.Light.Diffuse)
	gl.Uniform1i(p.Uniform("uTexture"), 0)
	gl.ActiveTexture(gl.TEXTURE0)

	blending := false
	for _, i := range DrawOrder(batchesOf(r.batches)) {
		g := &r.batches[i]
		if g.count == 0 {
			continue
		}
		if g.Transparent() && !blending {
			gl.Enable(gl.BLEND)
			gl.DepthMask(false)
			blending = true
		}

		gl.Uniform4f(p.Uniform("uColor"), g.Color[0], g.Color[1], g.Color[2], g.Alpha)
		gl.Uniform1i(p.Uniform("uHighlight"), boolToInt(g.Surface == highlight))
		if g.tex != 0 {
			gl.Uniform1i(p.Uniform("uUseTexture"), 1)
			gl.BindTexture(gl.TEXTURE_2D, g.tex)
		} else {
			gl.Uniform1i(p.Uniform("uUseTexture"), 0)
		}

		gl.BindVertexArray(g.vao)
		gl.DrawArrays(gl.TRIANGLES, 0, g.count)
	}
	gl.DepthMask(true)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// drawMarkers draws entities on top of the surfaces so they stay visible inside closed rooms.
func (r *Renderer) drawMarkers(viewProj mgl32.Mat4, entities []scene.Entity) {
	if len(entities) == 0 {
		return
	}
	data := BuildMarkers(entities)

	gl.BindBuffer(gl.ARRAY_BUFFER, r.markerVBO)
	if len(data) > r.markerCap {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, unsafe.Pointer(&data[0]), gl.DYNAMIC_DRAW)
		r.markerCap = len(data)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, unsafe.Pointer(&data[0]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)

	p := r.markers
	p.Use()
	gl.UniformMatrix4fv(p.Uniform("uViewProj"), 1, false, &viewProj[0])
	gl.Uniform1f(p.Uniform("uPointSize"), r.cfg.MarkerSize)

	gl.BindVertexArray(r.markerVAO)
	gl.DrawArrays(gl.POINTS, 0, int32(len(entities)))
	gl.BindVertexArray(0)
}

// ReadPixels reads the RGBA contents of vp, bottom row first.
func (r *Renderer) ReadPixels(vp camera.Viewport) []byte {
	pixels := make([]byte, vp.Width*vp.Height*4)
	if len(pixels) == 0 {
		return pixels
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels
}

func batchesOf(g []gpuBatch) []Batch {
	out := make([]Batch, len(g))
	for i := range g {
		out[i] = g[i].Batch
	}
	return out
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// glState is the StateBackend of the current GL context.
type glState struct{}

func (glState) Current() State {
	var vp [4]int32
	gl.GetIntegerv(gl.VIEWPORT, &vp[0])
	return State{
		Viewport:  camera.Viewport{X: int(vp[0]), Y: int(vp[1]), Width: int(vp[2]), Height: int(vp[3])},
		DepthTest: gl.IsEnabled(gl.DEPTH_TEST),
		Blend:     gl.IsEnabled(gl.BLEND),
	}
}

func (glState) Apply(s State) {
	gl.Viewport(int32(s.Viewport.X), int32(s.Viewport.Y), int32(s.Viewport.Width), int32(s.Viewport.Height))
	setEnabled(gl.DEPTH_TEST, s.DepthTest)
	setEnabled(gl.BLEND, s.Blend)
}

func setEnabled(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}
