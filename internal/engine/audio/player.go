package audio

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/logger"
)

// ErrNotInitialized is returned by Play before Init succeeded.
var ErrNotInitialized = errors.New("audio not initialized")

var dbBase = gomath.Pow(10, 1.0/20)

// Player auditions one WAV file at a time through the system speaker.
type Player struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate

	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	playing  bool
	path     string

	// gen numbers each Play. The end-of-stream callback runs under the
	// speaker lock, so it only records the finished generation and never
	// takes mu.
	gen   uint64
	ended atomic.Uint64

	level float64 // 0.0 to 1.0
	muted bool

	log *zap.Logger
}

// NewPlayer creates a player with the given volume (0.0 to 1.0).
func NewPlayer(level float64, log *zap.Logger) *Player {
	return &Player{
		level: clamp(level, 0, 1),
		log:   logger.Named(log, "audio"),
	}
}

// Init opens the speaker.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	p.sampleRate = DefaultSampleRate
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	p.initialized = true
	return nil
}

// Close stops playback and releases the speaker stream.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if p.initialized {
		speaker.Close()
	}
	p.initialized = false
}

// IsInitialized returns whether the speaker is open.
func (p *Player) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = clamp(level, 0, 1)
	p.applyVolumeLocked()
}

// Volume returns the playback volume.
func (p *Player) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// SetMuted silences playback without losing the volume level.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
	p.applyVolumeLocked()
}

func (p *Player) applyVolumeLocked() {
	if p.volume == nil {
		return
	}
	speaker.Lock()
	p.volume.Silent = p.muted || p.level <= 0
	p.volume.Volume = volumeToDb(p.level)
	speaker.Unlock()
}

// volumeToDb converts a 0-1 level to decibels: 1 -> 0dB, 0.5 -> -6dB.
func volumeToDb(level float64) float64 {
	if level <= 0 {
		return -100
	}
	return 20 * gomath.Log10(level)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Play starts a WAV file, replacing whatever was playing.
func (p *Player) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrNotInitialized
	}
	p.stopLocked()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode wav %s: %w", path, err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		s = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}

	p.ctrl = &beep.Ctrl{Streamer: s}
	// With this base, Volume is in decibels.
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: dbBase}
	p.streamer = streamer
	p.path = path
	p.playing = true
	p.applyVolumeLocked()

	p.gen++
	speaker.Play(beep.Seq(p.volume, beep.Callback(p.onEnd(p.gen))))

	p.log.Info("playing", zap.String("path", path), zap.Duration("length", format.SampleRate.D(streamer.Len())))
	return nil
}

// onEnd returns the callback marking generation gen as played out.
func (p *Player) onEnd(gen uint64) func() {
	return func() {
		p.ended.Store(gen)
	}
}

// Stop ends playback.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.streamer == nil {
		return
	}
	if p.initialized {
		speaker.Clear()
	}
	p.streamer.Close()
	p.streamer = nil
	p.ctrl = nil
	p.volume = nil
	p.playing = false
	p.path = ""
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.setPaused(true)
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.setPaused(false)
}

func (p *Player) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
	p.playing = !paused
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.playing && p.ended.Load() != p.gen
}

// Current returns the path of the file being played.
func (p *Player) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.path
}
