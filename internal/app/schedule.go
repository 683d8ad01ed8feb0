package app

import (
	"time"

	"github.com/dkeye/PartyCast/internal/domain"
)

// QueueEntry is one accepted request. Round is an index into Schedule.Rounds.
type QueueEntry struct {
	Entry       domain.CatalogEntry
	RequesterID domain.MemberID
	ID          int
	Round       int
	StartedAt   time.Time
}

// Round is append-only; entries are consumed by advancing PlayingIndex.
type Round struct {
	Entries      []*QueueEntry
	PlayingIndex int
}

func (r *Round) hasRequester(id domain.MemberID) bool {
	for _, e := range r.Entries {
		if e.RequesterID == id {
			return true
		}
	}
	return false
}

func (r *Round) playing() *QueueEntry {
	if r.PlayingIndex < 0 || r.PlayingIndex >= len(r.Entries) {
		return nil
	}
	return r.Entries[r.PlayingIndex]
}

func (r *Round) next() *QueueEntry {
	i := r.PlayingIndex + 1
	if i >= len(r.Entries) {
		return nil
	}
	return r.Entries[i]
}

// Schedule is the arena of rounds. Current is -1 until the first round exists
// and never decreases.
type Schedule struct {
	Rounds  []*Round
	Current int
}

func NewSchedule() *Schedule {
	return &Schedule{Current: -1}
}

func (s *Schedule) appendRound() *Round {
	r := &Round{PlayingIndex: -1}
	s.Rounds = append(s.Rounds, r)
	return r
}

func (s *Schedule) CurrentRound() *Round {
	if s.Current < 0 || s.Current >= len(s.Rounds) {
		return nil
	}
	return s.Rounds[s.Current]
}

// place appends a request to the first round, starting at Current, that has
// no entry from the same requester.
func (s *Schedule) place(requester domain.MemberID, entry domain.CatalogEntry) *QueueEntry {
	if len(s.Rounds) == 0 {
		s.appendRound()
		s.Current = 0
	}
	idx := s.Current
	for idx < len(s.Rounds) && s.Rounds[idx].hasRequester(requester) {
		idx++
	}
	if idx == len(s.Rounds) {
		s.appendRound()
	}
	r := s.Rounds[idx]
	qe := &QueueEntry{
		Entry:       entry,
		RequesterID: requester,
		ID:          len(r.Entries),
		Round:       idx,
	}
	r.Entries = append(r.Entries, qe)
	return qe
}

func (s *Schedule) NowPlaying() *QueueEntry {
	if r := s.CurrentRound(); r != nil {
		return r.playing()
	}
	return nil
}

// UpNext looks at most one round ahead.
func (s *Schedule) UpNext() *QueueEntry {
	r := s.CurrentRound()
	if r == nil {
		return nil
	}
	if n := r.next(); n != nil {
		return n
	}
	if s.Current+1 < len(s.Rounds) {
		return s.Rounds[s.Current+1].next()
	}
	return nil
}
