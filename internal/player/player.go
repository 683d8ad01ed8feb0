// Package player holds the playback devices the lobby can drive.
package player

import (
	"errors"
	"math"
	"sync"

	"github.com/dkeye/PartyCast/internal/core"
)

// ErrUnavailable is returned by Prepare when the build or host has no audio output.
var ErrUnavailable = errors.New("audio output unavailable")

var (
	_ core.Device = (*Dummy)(nil)
	_ core.Device = (*Beep)(nil)
)

// volume is a level/mute pair shared by the devices. apply is called with the
// lock released whenever either value changes.
type volume struct {
	mu    sync.Mutex
	level float64
	muted bool
	apply func(level float64, muted bool)
}

func newVolume(level float64) *volume {
	return &volume{level: clamp(level)}
}

func (v *volume) Level() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level
}

func (v *volume) Muted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.muted
}

func (v *volume) SetLevel(level float64) {
	v.mu.Lock()
	v.level = clamp(level)
	level, muted, apply := v.level, v.muted, v.apply
	v.mu.Unlock()
	if apply != nil {
		apply(level, muted)
	}
}

func (v *volume) SetMuted(muted bool) {
	v.mu.Lock()
	v.muted = muted
	level, apply := v.level, v.apply
	v.mu.Unlock()
	if apply != nil {
		apply(level, muted)
	}
}

func clamp(level float64) float64 {
	if math.IsNaN(level) {
		return 1
	}
	return min(max(level, 0), 1)
}
