// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLen = 25
	HostAgent  = "Server"
)

type MemberID int

// Member is a party participant's identity.
// No transport or lifecycle logic here.
type Member struct {
	ID          MemberID
	Name        string
	Permissions Permissions
	Agent       string
	Origin      string
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id MemberID, name string, perms Permissions, agent, origin string) *Member {
	return &Member{
		ID:          id,
		Name:        SanitizeName(name),
		Permissions: perms,
		Agent:       agent,
		Origin:      origin,
	}
}

func (m *Member) Can(bit Permissions) bool {
	return m.Permissions.Has(bit)
}

func (m *Member) SetName(name string) {
	m.Name = SanitizeName(name)
}

// SanitizeName replaces newlines with spaces and cuts the name to MaxNameLen runes.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\r\n", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	if utf8.RuneCountInString(name) > MaxNameLen {
		name = string([]rune(name)[:MaxNameLen])
	}
	return name
}
