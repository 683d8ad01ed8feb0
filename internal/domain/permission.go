package domain

// Permissions is a capability bitmask. Bit values are part of the wire protocol.
type Permissions uint32

const (
	PermChangeOwnName Permissions = 1 << 0
	PermSubmitToQueue Permissions = 1 << 1
	PermViewMembers   Permissions = 1 << 2
	PermManageUsers   Permissions = 1 << 3
	PermManageQueue   Permissions = 1 << 4
	PermOwner         Permissions = 1 << 6

	// PermHost satisfies every check.
	PermHost Permissions = 1<<30 - 1

	PermsDefault   = PermChangeOwnName | PermSubmitToQueue | PermViewMembers
	PermsModerator = PermsDefault | PermManageUsers | PermManageQueue
)

// Has reports whether every bit of want is granted.
func (p Permissions) Has(want Permissions) bool {
	return p&want == want
}
