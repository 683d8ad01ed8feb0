package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/dkeye/PartyCast/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// broadcast sends an event to every active member. build produces the data
// for each recipient.
func (l *Lobby) broadcast(typ string, build func(*session) any) {
	fanOut := func() {
		for _, s := range l.registry.Active() {
			l.sendEvent(s, typ, build(s))
		}
	}
	if l.holding {
		l.held = append(l.held, fanOut)
		return
	}
	fanOut()
}

// notify calls listeners after any broadcasts still held for a response.
func (l *Lobby) notify(event string, fn func(core.Listener)) {
	call := func() { l.listeners.notify(event, fn) }
	if l.holding {
		l.held = append(l.held, call)
		return
	}
	call()
}

func (l *Lobby) hold() {
	l.holding = true
}

func (l *Lobby) release() {
	held := l.held
	l.holding = false
	l.held = nil
	for _, fn := range held {
		fn()
	}
}

func (l *Lobby) sendEvent(s *session, typ string, data any) {
	if s.conn == nil {
		return
	}
	l.sendJSON(s, protocol.Event{Type: typ, Data: data, ClientID: int(s.member.ID)})
}

func (l *Lobby) respond(s *session, id json.RawMessage, status protocol.Status, message string) {
	if s.conn == nil {
		return
	}
	l.sendJSON(s, protocol.Response{ID: id, Type: protocol.TypeResponse, Status: status, Message: message})
}

func (l *Lobby) sendConnError(s *session) {
	l.sendEvent(s, protocol.EvConnError, protocol.MsgConnError)
}

func (l *Lobby) sendJSON(s *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("sendJSON marshal")
		return
	}
	err = s.conn.TrySend(b)
	if err == nil {
		return
	}
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Err(err).Str("module", "app.events").Int("member", int(s.member.ID)).Msg("send failed")
		return
	}
	switch l.policy.OnBackPressure(*s.member) {
	case KickMember:
		log.Warn().Str("module", "app.events").Int("member", int(s.member.ID)).Msg("slow member kicked")
		s.conn.Close()
	case MarkSlow:
		log.Warn().Str("module", "app.events").Int("member", int(s.member.ID)).Msg("slow member")
	case DropFrame, NoAction:
	}
}

func (l *Lobby) exportMember(s *session) protocol.Member {
	return protocol.Member{
		ID:          int(s.member.ID),
		Name:        s.member.Name,
		Agent:       s.member.Agent,
		Permissions: uint32(s.member.Permissions),
		Address:     s.member.Origin,
	}
}

func (l *Lobby) exportLibrary() protocol.Library {
	return protocol.Library{
		Name: libraryName,
		Items: lo.Map(l.library, func(e domain.CatalogEntry, _ int) protocol.LibraryItem {
			return protocol.LibraryItem{
				ID:       int(e.ID),
				Title:    e.Title,
				Artist:   e.Artist,
				Album:    e.Album,
				ImageURL: protocol.ArtworkURL(l.port, e.ArtworkRef),
				Length:   e.Duration,
			}
		}),
	}
}

func (l *Lobby) exportMedia(qe *QueueEntry) protocol.Media {
	m := protocol.Media{
		Requester: int(qe.RequesterID),
		ID:        qe.ID,
		Title:     qe.Entry.Title,
		Artist:    qe.Entry.Artist,
		Artwork:   protocol.ArtworkURL(l.port, qe.Entry.ArtworkRef),
		Length:    qe.Entry.Duration,
	}
	if qe == l.scheduler.Schedule().NowPlaying() {
		m.Progress = l.scheduler.Progress().Milliseconds()
	}
	return m
}

func (l *Lobby) exportLooper() protocol.Looper {
	sched := l.scheduler.Schedule()
	rounds := make([]protocol.Round, 0, len(sched.Rounds))
	for i, r := range sched.Rounds {
		rounds = append(rounds, protocol.Round{
			ID:      i,
			Playing: r.PlayingIndex,
			Media:   lo.Map(r.Entries, func(qe *QueueEntry, _ int) protocol.Media { return l.exportMedia(qe) }),
		})
	}
	return protocol.Looper{CurrentQueue: sched.Current, Rounds: rounds}
}

func (l *Lobby) volumeState() protocol.VolumeState {
	vc, ok := l.device.VolumeControl()
	if !ok {
		return protocol.VolumeState{Level: 1}
	}
	return protocol.VolumeState{Level: vc.Level(), Muted: vc.Muted(), Supported: true}
}

// snapshot builds the lobby view for one recipient.
func (l *Lobby) snapshot(s *session) protocol.Lobby {
	out := protocol.Lobby{
		Title:       l.title,
		HostID:      int(l.host.member.ID),
		Members:     lo.Map(l.registry.Active(), func(m *session, _ int) protocol.Member { return l.exportMember(m) }),
		Looper:      l.exportLooper(),
		Library:     l.exportLibrary(),
		PlayerState: int(l.scheduler.State()),
		VolumeState: l.volumeState(),
		ActionBoard: []any{},
	}
	sched := l.scheduler.Schedule()
	if qe := sched.NowPlaying(); qe != nil {
		m := l.exportMedia(qe)
		out.NowPlaying = &m
	}
	if qe := sched.UpNext(); qe != nil {
		m := l.exportMedia(qe)
		out.UpNext = &m
	}
	if s != nil && s.board != nil {
		out.ActionBoard = s.board.Generate()
	}
	return out
}
