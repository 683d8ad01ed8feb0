package core

import "github.com/dkeye/PartyCast/internal/domain"

// SessionID names one transport connection in logs.
type SessionID string

// Board is the per-member interactive extension object.
type Board interface {
	// Generate returns the member's current board view.
	Generate() any
	// HandleInput applies one action and returns a message for the response.
	HandleInput(id string, value []byte) (string, error)
}

// BoardProvider builds a board for a member. notify pushes a fresh board to that member.
type BoardProvider func(memberID domain.MemberID, notify func()) Board
