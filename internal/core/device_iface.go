package core

import "time"

// Device is the single shared output the scheduler drives.
type Device interface {
	// Prepare is called once before the first Play.
	Prepare(title string) error
	// Play starts path; onEnded fires once when media ends on its own.
	Play(path string, onEnded func()) error
	Pause()
	Resume()
	// Kill resets the device. A pending onEnded must never fire afterwards.
	Kill()
	// Position returns elapsed playback time of the current media.
	Position() time.Duration
	// VolumeControl returns false when the device cannot change volume.
	VolumeControl() (VolumeControl, bool)
}

type VolumeControl interface {
	Level() float64 // 0..1
	Muted() bool
	SetLevel(v float64)
	SetMuted(v bool)
}
