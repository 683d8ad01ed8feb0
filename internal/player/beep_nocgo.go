//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"time"

	"github.com/dkeye/PartyCast/internal/core"
)

// AudioAvailable reports whether this build can drive a sound card.
// Audio requires cgo on linux.
const AudioAvailable = false

// Beep is a stand-in that refuses to prepare, so callers fall back to Dummy.
type Beep struct {
	vol *volume
}

func NewBeep(level float64) *Beep {
	return &Beep{vol: newVolume(level)}
}

func (b *Beep) Prepare(string) error { return ErrUnavailable }

func (b *Beep) Play(string, func()) error { return ErrUnavailable }

func (b *Beep) Pause() {}

func (b *Beep) Resume() {}

func (b *Beep) Kill() {}

func (b *Beep) Position() time.Duration { return 0 }

func (b *Beep) VolumeControl() (core.VolumeControl, bool) { return b.vol, true }
