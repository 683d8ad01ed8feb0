package domain

import (
	"strings"
	"testing"
)

func TestPermissions(t *testing.T) {
	t.Run("default grant", func(t *testing.T) {
		p := PermsDefault
		for _, bit := range []Permissions{PermChangeOwnName, PermSubmitToQueue, PermViewMembers} {
			if !p.Has(bit) {
				t.Errorf("default should grant %d", bit)
			}
		}
		if p.Has(PermManageQueue) || p.Has(PermManageUsers) || p.Has(PermOwner) {
			t.Error("default should not grant management bits")
		}
	})

	t.Run("host satisfies everything", func(t *testing.T) {
		for _, bit := range []Permissions{PermChangeOwnName, PermManageQueue, PermOwner, PermsModerator} {
			if !PermHost.Has(bit) {
				t.Errorf("host should satisfy %d", bit)
			}
		}
	})

	t.Run("combined bits need all", func(t *testing.T) {
		p := PermManageQueue
		if p.Has(PermManageQueue | PermManageUsers) {
			t.Error("partial grant must not satisfy combined check")
		}
	})
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"a\nb", "a b"},
		{"a\r\nb", "a b"},
		{strings.Repeat("x", 40), strings.Repeat("x", MaxNameLen)},
		{strings.Repeat("ж", 30), strings.Repeat("ж", MaxNameLen)},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMemberSetName(t *testing.T) {
	m := NewMember(2, "bob", PermsDefault, "agent", "10.0.0.2")
	m.SetName("line\nbreak")
	if m.Name != "line break" {
		t.Errorf("unexpected name %q", m.Name)
	}
	if !m.Can(PermSubmitToQueue) {
		t.Error("member should be able to submit")
	}
}
