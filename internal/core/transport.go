package core

// Frame is one encoded signaling message on the wire.
type Frame []byte

// SignalConnection abstracts the per-client messaging transport.
// Owned by the adapter; the adapter must Close() it. TrySend never
// blocks: a full send buffer or a closed connection returns an error
// so a slow receiver cannot stall fan-out to its room mates.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
