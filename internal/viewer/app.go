package viewer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/config"
	"github.com/Faultbox/roomstudio/internal/engine/audio"
	"github.com/Faultbox/roomstudio/internal/engine/camera"
	"github.com/Faultbox/roomstudio/internal/engine/debug"
	"github.com/Faultbox/roomstudio/internal/engine/input"
	"github.com/Faultbox/roomstudio/internal/engine/lighting"
	"github.com/Faultbox/roomstudio/internal/engine/renderer"
	"github.com/Faultbox/roomstudio/internal/engine/window"
	"github.com/Faultbox/roomstudio/internal/logger"
	"github.com/Faultbox/roomstudio/internal/simulation"
)

// pick is a file chosen in a dialog, handed back to the main thread.
type pick struct {
	action Action
	path   string
}

// App is the SDL window, the GL renderer and the audio output around a Session.
// IMPORTANT: New, Run and Close must be called from the main thread.
type App struct {
	cfg *config.Config

	window      *window.Window
	renderer    *renderer.Renderer
	player      *audio.Player
	runner      *simulation.Runner
	session     *Session
	screenshots *debug.ScreenshotCapture

	events  []input.Event
	picks   chan pick
	title   string
	running bool
	log     *zap.Logger
}

// NewApp opens the window and creates the renderer, the audio output and the session.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.Named(log, "app")
	a := &App{
		cfg:    cfg,
		events: make([]input.Event, 0, 32),
		picks:  make(chan pick, 4),
		log:    log,
	}

	var err error
	a.window, err = window.New(window.Config{
		Title:      "RoomStudio",
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window just created.
	rcfg := renderer.DefaultConfig()
	rcfg.Light = lighting.New(cfg.Viewer.Ambient, cfg.Viewer.Diffuse)
	a.renderer, err = renderer.New(rcfg, log)
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a.player = audio.NewPlayer(float64(cfg.Audio.Volume), log)
	a.player.SetMuted(cfg.Audio.Muted)
	if err := a.player.Init(); err != nil {
		// Viewing works without sound; only auditioning is lost.
		log.Warn("audio output unavailable", zap.Error(err))
	}

	engine := simulation.NewCommandEngine(cfg.Simulation.Command, log)
	a.runner = simulation.NewRunner(engine, cfg.Simulation.OutputDir, cfg.Simulation.Timeout, log)
	a.screenshots = debug.NewScreenshotCapture(cfg.Viewer.ScreenshotDir, "roomstudio", cfg.Viewer.ScreenshotFormat)

	a.session = NewSession(OptionsFromConfig(cfg), simulation.ParamsFromConfig(cfg.Simulation), a.runner, a.player, log)
	if cfg.Data.Sound != "" {
		a.session.SetSound(cfg.Data.Sound)
	}

	w, h := a.window.Size()
	a.session.SetViewport(camera.Viewport{Width: w, Height: h})

	log.Info("app initialized")
	return a, nil
}

// Session returns the session driven by the app.
func (a *App) Session() *Session {
	return a.session
}

// Run processes events and draws frames until the window is closed or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.running = true

	var frameBudget time.Duration
	if a.cfg.Window.FPSLimit > 0 {
		frameBudget = time.Second / time.Duration(a.cfg.Window.FPSLimit)
	}
	frames := 0
	fpsTimer := time.Now()

	a.log.Info("starting frame loop")
	for a.running {
		start := time.Now()
		if ctx.Err() != nil {
			break
		}

		a.events = window.PollEvents(a.events[:0])
		for _, e := range a.events {
			a.dispatch(a.session.HandleEvent(ctx, e))
		}
		a.drainPicks()

		a.sync()
		a.draw()
		a.window.SwapBuffers()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frames))
			frames = 0
			fpsTimer = time.Now()
		}
		if frameBudget > 0 {
			if rest := frameBudget - time.Since(start); rest > 0 {
				time.Sleep(rest)
			}
		}
	}

	if a.runner.Running() {
		a.log.Info("waiting for simulation to finish")
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.runner.Wait(waitCtx); err != nil {
			a.log.Warn("leaving simulation running", zap.Error(err))
		}
	}
	return nil
}

func (a *App) dispatch(action Action) {
	switch action {
	case ActionQuit:
		a.running = false
	case ActionScreenshot:
		a.screenshot()
	case ActionOpenModel:
		a.openDialog(ActionOpenModel, "Open room model", "STL models", "stl")
	case ActionImportSound:
		a.openDialog(ActionImportSound, "Import sound", "WAV audio", "wav")
	}
}

// openDialog shows a native file dialog off the main thread and queues the
// chosen path for the next frame.
func (a *App) openDialog(action Action, title, desc, ext string) {
	go func() {
		path, err := dialog.File().
			Filter(desc, ext).
			Filter("All Files", "*").
			Title(title).
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				a.log.Error("file dialog failed", zap.Error(err))
			}
			return
		}
		select {
		case a.picks <- pick{action: action, path: path}:
		default:
			a.log.Warn("dropping file choice", zap.String("path", path))
		}
	}()
}

func (a *App) drainPicks() {
	for {
		select {
		case p := <-a.picks:
			switch p.action {
			case ActionOpenModel:
				if err := a.session.LoadModel(p.path); err != nil {
					a.log.Error("failed to open model", zap.String("path", p.path), zap.Error(err))
				}
			case ActionImportSound:
				a.session.SetSound(p.path)
			}
		default:
			return
		}
	}
}

// sync pushes session changes to the GPU and the window title.
func (a *App) sync() {
	changes := a.session.TakeChanges()
	if m := a.session.Mesh(); m != nil {
		if changes.Mesh {
			a.renderer.Upload(m, a.session.Segmentation())
		} else if changes.Materials {
			a.renderer.UpdateMaterials(m, a.session.Segmentation())
		}
	}

	title := a.session.Title()
	if a.runner.Running() {
		title += " - simulating"
	}
	if title != a.title {
		a.window.SetTitle(title)
		a.title = title
	}
}

// drawViewport is the framebuffer area. Mouse coordinates stay in window
// units; only GL works in drawable pixels.
func (a *App) drawViewport() camera.Viewport {
	w, h := a.window.DrawableSize()
	return camera.Viewport{Width: w, Height: h}
}

func (a *App) draw() {
	cam := a.session.Camera()
	vp := a.drawViewport()
	a.renderer.Draw(renderer.FrameInput{
		Viewport:   vp,
		View:       cam.ViewTransform(),
		Projection: cam.Projection(vp.Aspect()),
		Eye:        cam.Eye(),
		Entities:   a.session.Registry().Entities(),
		Highlight:  a.session.SelectedSurface(),
	})
}

func (a *App) screenshot() {
	vp := a.drawViewport()
	a.draw()
	path, err := a.screenshots.CaptureFromPixels(a.renderer.ReadPixels(vp), vp.Width, vp.Height)
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", filepath.Clean(path)))
}

// Close releases the audio output, the renderer and the window.
func (a *App) Close() {
	a.log.Info("closing app")
	if a.player != nil {
		a.player.Close()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
