//go:build (linux && cgo) || windows || darwin

package player

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"
)

// AudioAvailable reports whether this build can drive a sound card.
const AudioAvailable = true

// Beep plays local mp3 and wav files on the default sound card.
type Beep struct {
	mu sync.Mutex

	initialized bool
	sampleRate  beep.SampleRate
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	gain        *effects.Volume
	gen         uint64
	vol         *volume
}

func NewBeep(level float64) *Beep {
	b := &Beep{
		sampleRate: beep.SampleRate(44100),
		vol:        newVolume(level),
	}
	b.vol.apply = b.applyVolume
	return b
}

func (b *Beep) Prepare(title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	if err := speaker.Init(b.sampleRate, b.sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	b.initialized = true
	log.Info().Str("module", "player.beep").Str("lobby", title).Int("rate", int(b.sampleRate)).Msg("speaker ready")
	return nil
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		s, format, err = mp3.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}

func (b *Beep) Play(path string, onEnded func()) error {
	streamer, format, err := decode(path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		_ = streamer.Close()
		return ErrUnavailable
	}
	b.stopLocked()
	b.gen++
	gen := b.gen

	b.streamer = streamer
	b.format = format
	b.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, b.sampleRate, streamer)}
	b.gain = &effects.Volume{Streamer: b.ctrl, Base: 2}
	setGain(b.gain, b.vol.Level(), b.vol.Muted())

	speaker.Play(beep.Seq(b.gain, beep.Callback(func() {
		// Runs under the speaker lock; hand off so onEnded may call back in.
		go b.ended(gen, onEnded)
	})))
	return nil
}

func (b *Beep) ended(gen uint64, onEnded func()) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	onEnded()
}

func (b *Beep) Pause() {
	b.setPaused(true)
}

func (b *Beep) Resume() {
	b.setPaused(false)
}

func (b *Beep) setPaused(paused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = paused
	speaker.Unlock()
}

func (b *Beep) Kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Beep) stopLocked() {
	b.gen++
	if b.initialized {
		speaker.Clear()
	}
	if b.streamer != nil {
		_ = b.streamer.Close()
		b.streamer = nil
	}
	b.ctrl = nil
	b.gain = nil
}

func (b *Beep) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos)
}

func (b *Beep) VolumeControl() (core.VolumeControl, bool) {
	return b.vol, true
}

func (b *Beep) applyVolume(level float64, muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gain == nil {
		return
	}
	speaker.Lock()
	setGain(b.gain, level, muted)
	speaker.Unlock()
}

// setGain maps a linear 0..1 level onto the base-2 exponent effects.Volume uses.
func setGain(v *effects.Volume, level float64, muted bool) {
	v.Silent = muted || level <= 0
	if level > 0 {
		v.Volume = math.Log2(level)
	}
}
