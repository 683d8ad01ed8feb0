package app

import (
	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// session binds a member to its live connection. conn is nil for the host.
type session struct {
	member *domain.Member
	conn   core.SignalConnection
	board  core.Board
}

// Registry tracks active members and the reconnection cache.
// Owned by the lobby goroutine.
type Registry struct {
	nextID     domain.MemberID
	byID       map[domain.MemberID]*session
	byOrigin   map[string]*session
	active     []*session
	moderators map[string]bool
}

// NewRegistry returns an empty registry. New members from a moderator
// origin get the moderator grant instead of the default one.
func NewRegistry(moderators ...string) *Registry {
	return &Registry{
		byID:       make(map[domain.MemberID]*session),
		byOrigin:   make(map[string]*session),
		moderators: lo.SliceToMap(moderators, func(o string) (string, bool) { return o, true }),
	}
}

func (r *Registry) allocate(name string, perms domain.Permissions, agent, origin string) *session {
	r.nextID++
	s := &session{member: domain.NewMember(r.nextID, name, perms, agent, origin)}
	r.byID[s.member.ID] = s
	return s
}

// AddHost creates the host's own member. It must be the first allocation.
func (r *Registry) AddHost(name string) *session {
	s := r.allocate(name, domain.PermHost, domain.HostAgent, "")
	r.active = append(r.active, s)
	return s
}

// Register resolves the member for a handshake. A cached member from the same
// origin with the same agent is reused. prev is the connection it replaces
// when that member is still active.
func (r *Registry) Register(origin, agent, name string, conn core.SignalConnection) (s *session, prev core.SignalConnection) {
	if cached, ok := r.byOrigin[origin]; ok && cached.member.Agent == agent {
		cached.member.SetName(name)
		if r.isActive(cached) {
			prev = cached.conn
		}
		cached.conn = conn
		log.Info().Str("module", "app.registry").
			Int("member", int(cached.member.ID)).
			Str("origin", origin).
			Msg("found cached member by origin")
		return cached, prev
	}
	perms := domain.PermsDefault
	if r.moderators[origin] {
		perms = domain.PermsModerator
	}
	s = r.allocate(name, perms, agent, origin)
	s.conn = conn
	r.byOrigin[origin] = s
	log.Info().Str("module", "app.registry").
		Int("member", int(s.member.ID)).
		Str("origin", origin).
		Msg("assigned new member")
	return s, nil
}

func (r *Registry) Activate(s *session) {
	if !r.isActive(s) {
		r.active = append(r.active, s)
	}
}

// Unregister drops s from the active set if conn is still its live connection.
// The cache entry survives.
func (r *Registry) Unregister(s *session, conn core.SignalConnection) bool {
	if s.conn != conn || !r.isActive(s) {
		return false
	}
	s.conn = nil
	r.active = lo.Without(r.active, s)
	log.Info().Str("module", "app.registry").Int("member", int(s.member.ID)).Msg("unregistered")
	return true
}

func (r *Registry) isActive(s *session) bool {
	return lo.Contains(r.active, s)
}

// Get returns a known member, active or cached.
func (r *Registry) Get(id domain.MemberID) (*session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Find returns an active member.
func (r *Registry) Find(id domain.MemberID) (*session, bool) {
	return lo.Find(r.active, func(s *session) bool { return s.member.ID == id })
}

// Active returns a copy of the active set in join order.
func (r *Registry) Active() []*session {
	out := make([]*session, len(r.active))
	copy(out, r.active)
	return out
}
