// Package transport implements the capability boundary spec.md §9 calls
// for: the read/write state machines depend only on "append bytes to
// outbound; read bytes from inbound; arm a timer" — not on TCP or UDP
// specifically. Two implementations of that capability, tcp.go and udp.go,
// sit behind the Transport interface so the connection state machine never
// branches on transport kind.
//
// Adapted from the teacher's transport.StreamTransport/RequestTransport
// split (request/response semantics); this interface instead exposes the
// event-driven append/consume/timer shape the read/write state machines
// need, since a pipelined load generator does not wait for one response
// before issuing the next request.
package transport

import "time"

// Event is one of the three edges the state machines react to (spec.md
// §4.1).
type Event int

const (
	// EventConnected fires once, when the underlying socket is ready.
	EventConnected Event = iota
	// EventReadable fires whenever new bytes have been appended to the read
	// buffer. It may fire more often than strictly necessary; consumers
	// drain Buffered() until no full message remains.
	EventReadable
	// EventFatal fires at most once, and no further events follow it. Err()
	// reports the cause.
	EventFatal
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "CONNECTED"
	case EventReadable:
		return "READABLE"
	case EventFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Transport is the capability boundary between the connection state
// machines and the underlying socket (spec.md §4.1, §6).
type Transport interface {
	// Events delivers CONNECTED, READABLE, and FATAL edges. FATAL fires at
	// most once and no further events follow it, but the channel itself is
	// never closed: callers stop reading from it once FATAL or ctx.Done
	// arrives rather than relying on a close to unblock a receive.
	Events() <-chan Event

	// Write appends payload to the outbound stream/datagram. TCP buffers it
	// for later coalescing via Flush; UDP writes one datagram per call
	// immediately, since there is nothing to coalesce (spec.md §4.1).
	Write(payload []byte) error

	// Flush pushes any writes buffered by Write onto the wire. The
	// connection's event loop calls it once per wake-up, right before it
	// parks waiting for the next event or timer, so that back-to-back Write calls
	// from a pipelined issue burst coalesce into a single TCP segment
	// (spec.md §4.1: "write coalescing mandatory for TCP"). A no-op on UDP.
	Flush() error

	// Buffered returns the bytes accumulated in the read buffer since the
	// last Consume call. The slice is only valid until the next Consume or
	// the next READABLE event is drained.
	Buffered() []byte

	// Consume discards the first n bytes of the read buffer: a decoder has
	// recognized and processed them.
	Consume(n int)

	// ArmTimer (re)schedules the connection's single-shot timer to fire
	// after d. Arming again before it fires replaces the pending deadline
	// (spec.md §4.1: "a single-shot timer").
	ArmTimer(d time.Duration)

	// Timer is the channel the single-shot timer fires on.
	Timer() <-chan time.Time

	// Err returns the cause of a FATAL event, or nil if none occurred.
	Err() error

	// RemoteAddr returns the remote endpoint, for logging.
	RemoteAddr() string

	// Close releases the transport. Idempotent.
	Close() error
}
