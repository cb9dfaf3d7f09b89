// Package audio inspects and plays the WAV files sources emit and simulations produce.
package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrNoAudio is returned when no audio asset path was given.
var ErrNoAudio = errors.New("no audio asset")

// Info describes a decoded WAV file.
type Info struct {
	Path       string
	SampleRate int
	Channels   int
	Precision  int // bytes per sample
	Frames     int
	Duration   time.Duration
}

// Probe decodes the header of a WAV file and measures its length.
func Probe(path string) (Info, error) {
	if path == "" {
		return Info{}, ErrNoAudio
	}
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open audio: %w", err)
	}
	// Closing the streamer closes f.
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return Info{}, fmt.Errorf("decode wav %s: %w", path, err)
	}
	defer streamer.Close()

	frames := streamer.Len()
	return Info{
		Path:       path,
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		Precision:  format.Precision,
		Frames:     frames,
		Duration:   format.SampleRate.D(frames),
	}, nil
}
