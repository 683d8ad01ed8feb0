package player

import (
	"sync"
	"time"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/rs/zerolog/log"
)

// Dummy plays nothing but keeps a wall-clock position. With Length set, each
// media ends on its own after that long.
type Dummy struct {
	Length time.Duration

	mu      sync.Mutex
	loaded  bool
	playing bool
	started time.Time
	cached  time.Duration
	timer   *time.Timer
	gen     uint64
	vol     *volume
	now     func() time.Time
}

func NewDummy(length time.Duration, level float64) *Dummy {
	return &Dummy{Length: length, vol: newVolume(level), now: time.Now}
}

func (d *Dummy) Prepare(title string) error {
	log.Info().Str("module", "player.dummy").Str("lobby", title).Msg("dummy device ready")
	return nil
}

func (d *Dummy) Play(path string, onEnded func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.loaded = true
	d.playing = true
	d.started = d.now()
	if d.Length > 0 {
		d.timer = time.AfterFunc(d.Length, func() { d.ended(gen, onEnded) })
	}
	log.Debug().Str("module", "player.dummy").Str("path", path).Msg("play")
	return nil
}

func (d *Dummy) ended(gen uint64, onEnded func()) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.loaded = false
	d.playing = false
	d.mu.Unlock()
	onEnded()
}

func (d *Dummy) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		return
	}
	d.cached += d.now().Sub(d.started)
	d.playing = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Dummy) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing || !d.loaded {
		return
	}
	d.playing = true
	d.started = d.now()
	if d.timer != nil {
		d.timer.Reset(max(d.Length-d.cached, 0))
	}
}

func (d *Dummy) Kill() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Dummy) stopLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.loaded = false
	d.playing = false
	d.cached = 0
}

func (d *Dummy) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing {
		return d.cached + d.now().Sub(d.started)
	}
	return d.cached
}

func (d *Dummy) VolumeControl() (core.VolumeControl, bool) {
	return d.vol, true
}
