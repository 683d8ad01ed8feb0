package core

import "errors"

var (
	// ErrBackpressure means the connection's outbound queue is full.
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)
