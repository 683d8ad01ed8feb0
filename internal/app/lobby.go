package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/dkeye/PartyCast/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

var (
	ErrLobbyClosed = errors.New("lobby closed")
	ErrInvalidName = errors.New("invalid name provided")
)

const libraryName = "DefaultFilesystemLibraryProvider"

type Options struct {
	Title      string
	Port       int
	HostName   string
	Moderators []string
	Catalog    core.Catalog
	Device     core.Device
	Boards     core.BoardProvider
	Policy     Policy
	Clock      func() time.Time
}

// Lobby is the aggregate root. Every mutation runs on the goroutine started
// by Run; other goroutines hand work in through the mailbox.
type Lobby struct {
	title   string
	port    int
	catalog core.Catalog
	device  core.Device
	boards  core.BoardProvider
	policy  Policy
	now     func() time.Time

	mailbox chan func()
	stopped chan struct{}

	registry  *Registry
	host      *session
	scheduler *Scheduler
	library   []domain.CatalogEntry
	listeners listenerSet

	// held collects broadcasts while a command is being answered so the
	// response goes out first.
	holding bool
	held    []func()
}

func NewLobby(opts Options) (*Lobby, error) {
	if opts.Device == nil || opts.Catalog == nil {
		return nil, errors.New("lobby needs a device and a catalog")
	}
	if opts.Policy == nil {
		opts.Policy = SimplePolicy{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.HostName == "" {
		opts.HostName = "Host"
	}
	l := &Lobby{
		title:    opts.Title,
		port:     opts.Port,
		catalog:  opts.Catalog,
		device:   opts.Device,
		boards:   opts.Boards,
		policy:   opts.Policy,
		now:      opts.Clock,
		mailbox:  make(chan func(), 64),
		stopped:  make(chan struct{}),
		registry: NewRegistry(opts.Moderators...),
	}
	l.host = l.registry.AddHost(opts.HostName)
	l.scheduler = NewScheduler(opts.Device, l, l.post, opts.Clock)
	if err := opts.Device.Prepare(opts.Title); err != nil {
		return nil, fmt.Errorf("prepare device: %w", err)
	}
	return l, nil
}

func (l *Lobby) Title() string { return l.title }

func (l *Lobby) AddListener(li core.Listener) { l.listeners.add(li) }

func (l *Lobby) RemoveListener(li core.Listener) { l.listeners.remove(li) }

// Run serves the mailbox until ctx is done, then stops playback and closes
// every member connection.
func (l *Lobby) Run(ctx context.Context) error {
	log.Info().Str("module", "app.lobby").Str("title", l.title).Msg("lobby started")
	l.notify("connected", func(li core.Listener) { li.OnConnected(l.title) })
	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			close(l.stopped)
			return ctx.Err()
		case fn := <-l.mailbox:
			if r := panics.Try(fn); r != nil {
				log.Error().Err(r.AsError()).Str("module", "app.lobby").Msg("task panicked")
			}
		}
	}
}

func (l *Lobby) shutdown() {
	l.scheduler.Kill()
	for _, s := range l.registry.Active() {
		if s.conn != nil {
			s.conn.Close()
		}
	}
	log.Info().Str("module", "app.lobby").Msg("lobby stopped")
}

// do runs fn on the lobby goroutine and waits for it.
func (l *Lobby) do(fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case l.mailbox <- task:
	case <-l.stopped:
		return ErrLobbyClosed
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrLobbyClosed
	}
}

// post queues fn without waiting. Used for callbacks that may fire on the
// lobby goroutine itself.
func (l *Lobby) post(fn func()) {
	go func() {
		select {
		case l.mailbox <- fn:
		case <-l.stopped:
		}
	}()
}

// Connect admits a handshaken connection and returns the member id bound to it.
func (l *Lobby) Connect(origin, agent, name string, conn core.SignalConnection) (domain.MemberID, error) {
	if strings.TrimSpace(name) == "" {
		return 0, ErrInvalidName
	}
	var id domain.MemberID
	err := l.do(func() { id = l.join(origin, agent, name, conn) })
	return id, err
}

func (l *Lobby) join(origin, agent, name string, conn core.SignalConnection) domain.MemberID {
	s, prev := l.registry.Register(origin, agent, name, conn)
	if l.boards != nil {
		target := s
		s.board = l.boards(s.member.ID, func() {
			l.post(func() { l.pushBoard(target) })
		})
	}

	if prev != nil {
		// Same member reconnected before the old socket closed.
		prev.Close()
		log.Info().Str("module", "app.lobby").Int("member", int(s.member.ID)).Msg("replaced live connection")
		l.sendEvent(s, protocol.EvDataPush, l.snapshot(s))
		// The handshake may carry a new name.
		updated := l.exportMember(s)
		l.broadcast(protocol.EvUserUpdated, func(*session) any { return updated })
		m := *s.member
		l.notify("member_updated", func(li core.Listener) { li.OnMemberUpdated(m) })
		return s.member.ID
	}

	joined := l.exportMember(s)
	l.broadcast(protocol.EvUserJoined, func(*session) any { return joined })
	l.registry.Activate(s)
	l.sendEvent(s, protocol.EvDataPush, l.snapshot(s))
	m := *s.member
	l.notify("member_joined", func(li core.Listener) { li.OnMemberJoined(m) })
	return s.member.ID
}

// Disconnect removes the member if conn is still its live connection.
func (l *Lobby) Disconnect(id domain.MemberID, conn core.SignalConnection) {
	_ = l.do(func() {
		s, ok := l.registry.Get(id)
		if !ok || !l.registry.Unregister(s, conn) {
			return
		}
		left := l.exportMember(s)
		l.broadcast(protocol.EvUserLeft, func(*session) any { return left })
		m := *s.member
		l.notify("member_left", func(li core.Listener) { li.OnMemberLeft(m) })
	})
}

// Handle processes one inbound frame from a member's connection.
func (l *Lobby) Handle(id domain.MemberID, conn core.SignalConnection, frame []byte) error {
	return l.do(func() {
		s, ok := l.registry.Find(id)
		if !ok || s.conn != conn {
			log.Debug().Str("module", "app.lobby").Int("member", int(id)).Msg("frame from stale connection dropped")
			return
		}
		l.dispatch(s, frame)
	})
}

// Reload rescans the catalog on the caller's goroutine and publishes the result.
func (l *Lobby) Reload(ctx context.Context) error {
	start := time.Now()
	entries, err := l.catalog.Reload(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.lobby").Msg("failed to reload library")
		return fmt.Errorf("reload catalog: %w", err)
	}
	log.Info().Str("module", "app.lobby").
		Int("songs", len(entries)).
		Dur("took", time.Since(start)).
		Msg("library loaded")
	return l.do(func() { l.setLibrary(entries) })
}

func (l *Lobby) setLibrary(entries []domain.CatalogEntry) {
	l.library = entries
	lib := l.exportLibrary()
	l.broadcast(protocol.EvLibraryUpdated, func(*session) any { return lib })
	published := append([]domain.CatalogEntry(nil), entries...)
	l.notify("catalog_updated", func(li core.Listener) { li.OnCatalogUpdated(published) })
}

// Snapshot returns the lobby as the host sees it.
func (l *Lobby) Snapshot() (protocol.Lobby, error) {
	var out protocol.Lobby
	err := l.do(func() { out = l.snapshot(l.host) })
	return out, err
}

// Members returns a copy of the active member set.
func (l *Lobby) Members() ([]domain.Member, error) {
	var out []domain.Member
	err := l.do(func() {
		for _, s := range l.registry.Active() {
			out = append(out, *s.member)
		}
	})
	return out, err
}

func (l *Lobby) pushBoard(s *session) {
	if s.board == nil || s.conn == nil {
		return
	}
	l.sendEvent(s, protocol.EvBoardUpdated, protocol.BoardUpdate{Data: s.board.Generate()})
}

// scheduleEvents

func (l *Lobby) lobbyUpdated() {
	l.broadcast(protocol.EvLobbyUpdated, func(s *session) any { return l.snapshot(s) })
	snap := l.snapshot(l.host)
	l.notify("lobby_state_changed", func(li core.Listener) { li.OnLobbyStateChanged(snap) })
}

func (l *Lobby) queueUpdated() {
	looper := l.exportLooper()
	l.broadcast(protocol.EvQueueUpdated, func(*session) any { return looper })
	l.notify("queue_updated", func(li core.Listener) { li.OnQueueUpdated(looper) })
}
