package core

// Frame is a raw text payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues without blocking and reports backpressure as an error.
	TrySend(Frame) error
	Close()
	RemoteAddr() string
}
