package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/logger"
)

// ErrBusy is returned by Start while a run is in progress.
var ErrBusy = errors.New("simulation already running")

// Result describes a finished run.
type Result struct {
	Dir      string
	Outputs  []Output
	Err      error
	Started  time.Time
	Finished time.Time
}

// Runner starts simulations in the background, one at a time.
type Runner struct {
	engine  Engine
	baseDir string
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger

	mu      sync.Mutex
	running bool
	last    *Result
	done    chan struct{}
}

// NewRunner creates a runner writing run directories under baseDir.
// A zero timeout means no limit.
func NewRunner(engine Engine, baseDir string, timeout time.Duration, log *zap.Logger) *Runner {
	return &Runner{
		engine:  engine,
		baseDir: baseDir,
		timeout: timeout,
		now:     time.Now,
		log:     logger.Named(log, "simulation"),
	}
}

// Start writes the manifest and runs the engine in a goroutine.
// It returns the run directory without waiting for the engine.
func (r *Runner) Start(ctx context.Context, req *Request) (string, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", ErrBusy
	}
	r.running = true
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	started := r.now()
	dir, err := CreateRunDir(r.baseDir, started)
	if err != nil {
		r.finish(done, &Result{Err: err, Started: started, Finished: r.now()})
		return "", err
	}
	if _, err := req.WriteManifest(dir); err != nil {
		r.finish(done, &Result{Dir: dir, Err: err, Started: started, Finished: r.now()})
		return "", err
	}

	r.log.Info("simulation started",
		zap.String("dir", dir),
		zap.Int("listeners", len(req.Listeners)),
		zap.Int("sources", len(req.Sources)),
		zap.Int("walls", len(req.Walls)))

	go func() {
		runCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		outputs, err := r.engine.Simulate(runCtx, req, dir)
		res := &Result{Dir: dir, Outputs: outputs, Err: err, Started: started, Finished: r.now()}
		if err != nil {
			r.log.Error("simulation failed", zap.String("dir", dir), zap.Int("outputs", len(outputs)), zap.Error(err))
		} else {
			r.log.Info("simulation complete", zap.String("dir", dir), zap.Int("outputs", len(outputs)),
				zap.Duration("took", res.Finished.Sub(started)))
		}
		r.finish(done, res)
	}()

	return dir, nil
}

func (r *Runner) finish(done chan struct{}, res *Result) {
	r.mu.Lock()
	r.running = false
	r.last = res
	r.mu.Unlock()
	close(done)
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Last returns the most recent finished run.
func (r *Runner) Last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// Wait blocks until the current run, if any, finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
