package transport

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"
)

// udpHeaderSize is the 8-byte framing header spec.md §4.1 requires on every
// UDP datagram: bytes [0..4)=0, byte 5=1 ("one datagram in this message").
const udpHeaderSize = 8

// udpDatagramMax is large enough for any response this load generator's
// workload can produce without fragmenting (value sizes are bounded by the
// configured value-size distribution in practice).
const udpDatagramMax = 64 * 1024

// UDP implements Transport over a connected datagram socket. Unlike TCP,
// writes are flushed immediately (one syscall per datagram, spec.md §4.1)
// and every read is first stripped of its 8-byte framing header before
// being handed to the decoder.
type UDP struct {
	conn   net.Conn
	events chan Event
	timer  *time.Timer

	mu  sync.Mutex
	buf bytes.Buffer
	err error

	closeOnce sync.Once
}

// DialUDP opens a datagram socket to addr.
func DialUDP(network, addr string, dialTimeout time.Duration) (*UDP, error) {
	if network == "tcp" || network == "tcp4" || network == "tcp6" {
		network = "udp"
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	u := &UDP{
		conn:   conn,
		events: make(chan Event, 4),
		timer:  time.NewTimer(time.Hour),
	}
	u.timer.Stop()

	u.events <- EventConnected
	go u.readLoop()
	return u, nil
}

func (u *UDP) readLoop() {
	chunk := make([]byte, udpDatagramMax)
	for {
		n, err := u.conn.Read(chunk)
		if err != nil {
			u.mu.Lock()
			if u.err == nil {
				u.err = err
			}
			u.mu.Unlock()
			u.emit(EventFatal)
			return
		}
		if n < udpHeaderSize {
			// Malformed datagram: too short to carry the framing header.
			continue
		}
		u.mu.Lock()
		u.buf.Write(chunk[udpHeaderSize:n])
		u.mu.Unlock()
		u.emit(EventReadable)
	}
}

func (u *UDP) emit(e Event) {
	select {
	case u.events <- e:
	default:
	}
}

func (u *UDP) Events() <-chan Event { return u.events }

// Write prepends the 8-byte UDP framing header and sends one datagram.
func (u *UDP) Write(payload []byte) error {
	out := make([]byte, udpHeaderSize+len(payload))
	out[5] = 1
	copy(out[udpHeaderSize:], payload)
	if _, err := u.conn.Write(out); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Flush is a no-op: Write already sends one datagram per call, so there is
// nothing buffered to coalesce.
func (u *UDP) Flush() error { return nil }

func (u *UDP) Buffered() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.buf.Bytes()...)
}

func (u *UDP) Consume(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.Next(n)
}

func (u *UDP) ArmTimer(d time.Duration) {
	if !u.timer.Stop() {
		select {
		case <-u.timer.C:
		default:
		}
	}
	u.timer.Reset(d)
}

func (u *UDP) Timer() <-chan time.Time { return u.timer.C }

func (u *UDP) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

func (u *UDP) RemoteAddr() string { return u.conn.RemoteAddr().String() }

func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		u.timer.Stop()
		err = u.conn.Close()
	})
	return err
}

var _ Transport = (*UDP)(nil)
