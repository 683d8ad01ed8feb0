package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/dkeye/PartyCast/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

type result struct {
	status  protocol.Status
	message string
}

func ok(message string) result { return result{protocol.StatusOK, message} }

var (
	rejected    = result{protocol.StatusRejected, protocol.MsgRejected}
	unsupported = result{protocol.StatusUnsupported, protocol.MsgUnsupported}
)

type command struct {
	// perm is checked before run; zero means run checks on its own.
	perm domain.Permissions
	run  func(l *Lobby, s *session, value json.RawMessage) (result, error)
}

var commands = map[string]command{
	protocol.CmdUpdateUser:    {run: (*Lobby).cmdUpdateUser},
	protocol.CmdEnqueue:       {perm: domain.PermSubmitToQueue, run: (*Lobby).cmdEnqueue},
	protocol.CmdPlaybackPlay:  {perm: domain.PermManageQueue, run: (*Lobby).cmdPlay},
	protocol.CmdPlaybackPause: {perm: domain.PermManageQueue, run: (*Lobby).cmdPause},
	protocol.CmdPlaybackSkip:  {perm: domain.PermManageQueue, run: (*Lobby).cmdSkip},
	protocol.CmdVolumeUpdate:  {perm: domain.PermManageQueue, run: (*Lobby).cmdVolume},
	protocol.CmdBoardSubmit:   {run: (*Lobby).cmdBoardSubmit},
}

// dispatch answers one inbound frame. Broadcasts caused by the command are
// held until the response is sent.
func (l *Lobby) dispatch(s *session, frame []byte) {
	var in protocol.Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		log.Error().Err(err).Str("module", "app.commands").Int("member", int(s.member.ID)).Msg("bad json")
		l.sendConnError(s)
		return
	}
	id := in.ID
	if len(id) == 0 || string(id) == "null" {
		id = protocol.NoCorrelation
	}

	cmd, found := commands[in.Type]
	if !found {
		log.Warn().Str("module", "app.commands").Str("type", in.Type).Msg("unknown command")
		l.respond(s, id, unsupported.status, unsupported.message)
		return
	}
	if cmd.perm != 0 && !s.member.Can(cmd.perm) {
		log.Info().Str("module", "app.commands").Str("type", in.Type).Int("member", int(s.member.ID)).Msg("rejected")
		l.respond(s, id, rejected.status, rejected.message)
		return
	}

	l.hold()
	defer l.release()

	var res result
	var err error
	if r := panics.Try(func() { res, err = cmd.run(l, s, in.Value) }); r != nil {
		err = r.AsError()
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.commands").Str("type", in.Type).Msg("failed to handle message")
		l.sendConnError(s)
		return
	}
	l.respond(s, id, res.status, res.message)
}

func decode(value json.RawMessage, v any) error {
	if len(value) == 0 {
		return errors.New("missing value")
	}
	if err := json.Unmarshal(value, v); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

func (l *Lobby) cmdUpdateUser(s *session, value json.RawMessage) (result, error) {
	var v protocol.UpdateUserValue
	if err := decode(value, &v); err != nil {
		return result{}, err
	}
	n, err := v.ID.Int64()
	if err != nil {
		return result{}, fmt.Errorf("member id: %w", err)
	}
	target := domain.MemberID(n)

	var t *session
	switch {
	case s.member.Can(domain.PermManageUsers):
		found, exists := l.registry.Find(target)
		if !exists {
			return result{protocol.StatusNotFound, "Member not found"}, nil
		}
		t = found
		if v.Permissions != nil {
			t.member.Permissions = domain.Permissions(*v.Permissions)
		}
	case target == s.member.ID && s.member.Can(domain.PermChangeOwnName):
		t = s
	default:
		return rejected, nil
	}
	if v.Name != nil {
		t.member.SetName(*v.Name)
	}

	updated := l.exportMember(t)
	l.broadcast(protocol.EvUserUpdated, func(*session) any { return updated })
	m := *t.member
	l.notify("member_updated", func(li core.Listener) { li.OnMemberUpdated(m) })
	return ok("Username updated"), nil
}

func (l *Lobby) cmdEnqueue(s *session, value json.RawMessage) (result, error) {
	var v protocol.EnqueueValue
	if err := decode(value, &v); err != nil {
		return result{}, err
	}
	entry, found := l.catalog.Lookup(domain.CatalogEntryID(v.ID))
	if !found {
		return result{protocol.StatusNotFound, "Item not found"}, nil
	}
	l.scheduler.Enqueue(s.member.ID, entry)
	return ok("OK"), nil
}

func (l *Lobby) cmdPlay(*session, json.RawMessage) (result, error) {
	l.scheduler.Play()
	return ok("OK"), nil
}

func (l *Lobby) cmdPause(*session, json.RawMessage) (result, error) {
	l.scheduler.Pause()
	return ok("OK"), nil
}

func (l *Lobby) cmdSkip(*session, json.RawMessage) (result, error) {
	l.scheduler.Skip()
	return ok("OK"), nil
}

func (l *Lobby) cmdVolume(_ *session, value json.RawMessage) (result, error) {
	vc, supported := l.device.VolumeControl()
	if !supported {
		return unsupported, nil
	}
	var v protocol.VolumeValue
	if err := decode(value, &v); err != nil {
		return result{}, err
	}
	if v.Level != nil {
		vc.SetLevel(min(max(*v.Level, 0), 1))
	}
	if v.Muted != nil {
		vc.SetMuted(*v.Muted)
	}
	state := l.volumeState()
	l.broadcast(protocol.EvVolumeUpdated, func(*session) any { return state })
	return ok("OK"), nil
}

func (l *Lobby) cmdBoardSubmit(s *session, value json.RawMessage) (result, error) {
	if s.board == nil {
		return rejected, nil
	}
	var v protocol.BoardSubmitValue
	if err := decode(value, &v); err != nil {
		return result{}, err
	}
	var msg string
	var err error
	if r := panics.Try(func() { msg, err = s.board.HandleInput(v.ID, v.Value) }); r != nil {
		err = r.AsError()
	}
	if err != nil {
		return result{protocol.StatusHandlerError, err.Error()}, nil
	}
	return ok(msg), nil
}
