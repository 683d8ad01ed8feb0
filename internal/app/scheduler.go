package app

import (
	"time"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/rs/zerolog/log"
)

// scheduleEvents receives the scheduler's state changes.
type scheduleEvents interface {
	lobbyUpdated()
	queueUpdated()
}

// Scheduler drives the shared device through the playback state machine.
// It is not safe for concurrent use; the lobby goroutine owns it.
type Scheduler struct {
	schedule *Schedule
	device   core.Device
	state    domain.PlaybackState
	events   scheduleEvents
	post     func(func())
	now      func() time.Time

	// token identifies the live playback session; bumping it makes a
	// pending end-of-media callback inert.
	token uint64
}

func NewScheduler(device core.Device, events scheduleEvents, post func(func()), now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		schedule: NewSchedule(),
		device:   device,
		state:    domain.PlaybackReady,
		events:   events,
		post:     post,
		now:      now,
	}
}

func (s *Scheduler) State() domain.PlaybackState { return s.state }

func (s *Scheduler) Schedule() *Schedule { return s.schedule }

func (s *Scheduler) Enqueue(requester domain.MemberID, entry domain.CatalogEntry) *QueueEntry {
	qe := s.schedule.place(requester, entry)
	log.Info().Str("module", "app.scheduler").
		Int("requester", int(requester)).
		Int("round", qe.Round).
		Int("index", qe.ID).
		Str("title", entry.Title).
		Msg("enqueued")
	if s.state == domain.PlaybackReady {
		s.Skip()
	} else {
		s.events.queueUpdated()
	}
	return qe
}

func (s *Scheduler) Play() {
	if s.state != domain.PlaybackPaused {
		log.Warn().Str("module", "app.scheduler").Str("state", s.state.String()).Msg("play requested but not paused")
		return
	}
	if cur := s.schedule.NowPlaying(); cur != nil {
		cur.StartedAt = s.now().Add(-s.device.Position())
	}
	s.device.Resume()
	s.state = domain.PlaybackPlaying
	s.events.lobbyUpdated()
}

func (s *Scheduler) Pause() {
	if s.state != domain.PlaybackPlaying {
		log.Warn().Str("module", "app.scheduler").Str("state", s.state.String()).Msg("pause requested but not playing")
		return
	}
	s.device.Pause()
	s.state = domain.PlaybackPaused
	s.events.lobbyUpdated()
}

func (s *Scheduler) Skip() {
	if s.schedule.Current < 0 {
		log.Warn().Str("module", "app.scheduler").Msg("skip requested but schedule is empty")
		return
	}
	s.token++
	s.device.Kill()
	s.state = domain.PlaybackReady

	cq := s.schedule.CurrentRound()
	if cq.next() == nil {
		s.schedule.Current++
		if s.schedule.Current >= len(s.schedule.Rounds) {
			s.schedule.appendRound()
			log.Info().Str("module", "app.scheduler").Msg("end of schedule")
			s.events.lobbyUpdated()
			return
		}
		cq = s.schedule.CurrentRound()
	}
	next := cq.next()
	if next == nil {
		s.events.lobbyUpdated()
		return
	}

	token := s.token
	cq.PlayingIndex = next.ID
	err := s.device.Play(next.Entry.Path, func() {
		s.post(func() { s.mediaEnded(token) })
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.scheduler").Str("path", next.Entry.Path).Msg("device play failed")
		s.events.lobbyUpdated()
		return
	}
	s.state = domain.PlaybackPlaying
	next.StartedAt = s.now()
	log.Info().Str("module", "app.scheduler").
		Str("artist", next.Entry.Artist).
		Str("title", next.Entry.Title).
		Msg("now playing")
	s.events.lobbyUpdated()
}

// Kill stops the device without touching the schedule.
func (s *Scheduler) Kill() {
	s.token++
	s.device.Kill()
	s.state = domain.PlaybackReady
}

func (s *Scheduler) mediaEnded(token uint64) {
	if token != s.token {
		log.Debug().Str("module", "app.scheduler").Msg("stale end-of-media ignored")
		return
	}
	s.Skip()
}

// Progress is the elapsed time of the active entry.
func (s *Scheduler) Progress() time.Duration {
	cur := s.schedule.NowPlaying()
	if cur == nil {
		return 0
	}
	switch s.state {
	case domain.PlaybackPlaying:
		return s.now().Sub(cur.StartedAt)
	case domain.PlaybackPaused:
		return s.device.Position()
	}
	return 0
}
