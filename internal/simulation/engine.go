package simulation

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/Faultbox/roomstudio/internal/engine/audio"
	"github.com/Faultbox/roomstudio/internal/logger"
)

// ErrNoEngine is returned when no simulator command is configured.
var ErrNoEngine = errors.New("no simulation engine configured")

// Output is one rendered listener/source recording.
type Output struct {
	Listener string
	Source   string
	Path     string
	Info     audio.Info
}

// Engine renders the recordings of a request into outDir.
// The manifest has already been written to outDir when Simulate is called.
type Engine interface {
	Simulate(ctx context.Context, req *Request, outDir string) ([]Output, error)
}

// CommandEngine runs an external simulator. The manifest path and the output
// directory are appended to Command; the process writes one WAV per pair
// named by OutputName.
type CommandEngine struct {
	Command []string
	log     *zap.Logger
}

// NewCommandEngine creates an engine running command.
func NewCommandEngine(command []string, log *zap.Logger) *CommandEngine {
	return &CommandEngine{
		Command: command,
		log:     logger.Named(log, "simulator"),
	}
}

// Simulate implements Engine.
func (e *CommandEngine) Simulate(ctx context.Context, req *Request, outDir string) ([]Output, error) {
	if len(e.Command) == 0 {
		return nil, ErrNoEngine
	}

	args := append(append([]string(nil), e.Command[1:]...), filepath.Join(outDir, ManifestName), outDir)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)

	stdout := &zapio.Writer{Log: e.log, Level: zap.InfoLevel}
	stderr := &zapio.Writer{Log: e.log, Level: zap.WarnLevel}
	defer stdout.Close()
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.log.Debug("starting", zap.Strings("argv", cmd.Args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("simulator: %w", ctxErr)
		}
		return nil, fmt.Errorf("simulator: %w", err)
	}

	return CollectOutputs(req, outDir)
}

// CollectOutputs probes the recording of every listener/source pair in outDir.
// Pairs without a readable file are reported together; the readable ones are
// still returned.
func CollectOutputs(req *Request, outDir string) ([]Output, error) {
	var (
		outputs []Output
		errs    error
	)
	for _, src := range req.Sources {
		for _, l := range req.Listeners {
			path := filepath.Join(outDir, OutputName(l.Name, src.Name))
			info, err := audio.Probe(path)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			outputs = append(outputs, Output{
				Listener: l.Name,
				Source:   src.Name,
				Path:     path,
				Info:     info,
			})
		}
	}
	return outputs, errs
}
