package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"sync"
	"time"
)

// readChunkSize is the size of each conn.Read into the TCP transport's
// staging buffer.
const readChunkSize = 64 * 1024

// TCP implements Transport over a stream socket with buffered writes and
// Nagle toggled per spec.md §4.1 ("Read buffering and write coalescing are
// mandatory for TCP"). Grounded on transport/tcp.go's TcpStreamTransport:
// same dial-then-wrap shape, same fmt.Errorf("dial %s: %w", ...) wrapping,
// same mutex-guarded idempotent Close.
type TCP struct {
	conn   net.Conn
	w      *bufio.Writer
	events chan Event
	timer  *time.Timer

	mu   sync.Mutex
	buf  bytes.Buffer
	err  error

	closeOnce sync.Once
}

// DialTCP connects to addr over network ("tcp", "tcp4", "tcp6") and begins
// the background reader. noNoDelay leaves Nagle's algorithm enabled
// (spec.md §3 `no_nodelay`); by default Nagle is disabled, since a pipelined
// load generator wants requests on the wire immediately.
func DialTCP(network, addr string, dialTimeout time.Duration, noNoDelay bool) (*TCP, error) {
	conn, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok && !noNoDelay {
		if err := tc.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: set nodelay: %w", err)
		}
	}

	t := &TCP{
		conn:   conn,
		w:      bufio.NewWriter(conn),
		events: make(chan Event, 4),
		timer:  time.NewTimer(time.Hour),
	}
	t.timer.Stop()

	t.events <- EventConnected
	go t.readLoop()
	return t, nil
}

func (t *TCP) readLoop() {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := t.conn.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf.Write(chunk[:n])
			t.mu.Unlock()
			t.emit(EventReadable)
		}
		if err != nil {
			t.mu.Lock()
			if t.err == nil {
				t.err = err
			}
			t.mu.Unlock()
			t.emit(EventFatal)
			return
		}
	}
}

func (t *TCP) emit(e Event) {
	select {
	case t.events <- e:
	default:
		// A READABLE (or repeated FATAL) is already queued; the consumer
		// drains Buffered() fully on each wakeup so coalescing is safe.
	}
}

func (t *TCP) Events() <-chan Event { return t.events }

func (t *TCP) Write(payload []byte) error {
	if _, err := t.w.Write(payload); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (t *TCP) Flush() error {
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("transport: flush: %w", err)
	}
	return nil
}

func (t *TCP) Buffered() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.buf.Bytes()...)
}

func (t *TCP) Consume(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Next(n)
}

func (t *TCP) ArmTimer(d time.Duration) {
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer.Reset(d)
}

func (t *TCP) Timer() <-chan time.Time { return t.timer.C }

func (t *TCP) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *TCP) RemoteAddr() string { return t.conn.RemoteAddr().String() }

func (t *TCP) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.timer.Stop()
		err = t.conn.Close()
	})
	return err
}

var _ Transport = (*TCP)(nil)
