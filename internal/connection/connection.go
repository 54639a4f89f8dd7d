// Package connection implements the per-connection engine spec.md §4
// describes: a coupled read/write state machine pair driving one TCP or UDP
// socket through a bulk-load phase and a paced, pipelined measurement phase,
// recording latency samples through a stats.Sink.
//
// Grounded on server/replication.go and server/election.go's explicit
// state-machine switch style (a single exported struct holding mutable
// state, driven by small step methods named after the states they handle),
// adapted from request/response RPC handling to the read/write protocol
// state machines spec.md §4.3/§4.4 define.
package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/andrewbartolo/mutilate/internal/options"
	"github.com/andrewbartolo/mutilate/internal/protocol"
	"github.com/andrewbartolo/mutilate/internal/queue"
	"github.com/andrewbartolo/mutilate/internal/stats"
	"github.com/andrewbartolo/mutilate/internal/transport"
	"github.com/andrewbartolo/mutilate/internal/workload"
)

// Connection is one load-generating connection: one goroutine runs Run, and
// nothing else touches its fields, so the core holds no locks (spec.md §5:
// "no locks inside the core; concurrency, if any, is the caller's problem").
type Connection struct {
	opts *options.Options
	t    transport.Transport
	sink stats.Sink

	keygen       workload.KeyGenerator
	valueSizeGen workload.SizeGenerator
	iaGen        workload.IAGenerator
	rnd          *workload.Rand

	queue *queue.Queue
	keys  *keyPool

	readState  ReadState
	writeState WriteState

	loading         bool
	loaderIssued    int
	loaderCompleted int

	nextTime  time.Time
	lastRx    time.Time
	lastTx    time.Time
	startTime time.Time

	pendingLen int // bytes expected for the value in WAITING_FOR_GET_DATA

	done bool

	now func() time.Time
}

// New builds a Connection bound to an already-dialed transport. seed makes
// each connection's PRNG independent (spec.md §9: "the RNG must be seeded
// per-connection, not drawn from a single process-wide generator").
func New(opts *options.Options, t transport.Transport, sink stats.Sink, seed int64) *Connection {
	rnd := workload.NewRand(seed)
	return &Connection{
		opts:         opts,
		t:            t,
		sink:         sink,
		keygen:       workload.NewKeyGenerator(opts.Records, opts.KeySize),
		valueSizeGen: workload.NewSizeGenerator(opts.ValueSize, rnd),
		iaGen:        workload.NewIAGenerator(opts.IA, opts.Lambda, rnd),
		rnd:          rnd,
		queue:        queue.New(opts.Depth),
		keys:         newKeyPool(),
		readState:    InitRead,
		writeState:   InitWrite,
		now:          time.Now,
	}
}

// NoteAbsentKeys seeds the absent pool with key indices that were
// deliberately never loaded, satisfying the sa/ga/da cases' caller contract
// (spec.md §4.4: "caller must have invoked the absent-key seeding before
// entering the mixed workload"). Indices passed here must not also be
// passed to Load, or they would be simultaneously loaded and absent.
func (c *Connection) NoteAbsentKeys(indices []int) {
	c.keys.seedAbsent(indices)
}

// Connect waits for the transport's CONNECTED edge and, if SASL is
// configured, runs the PLAIN exchange, returning once the server's reply
// has been read (spec.md §4.5 step 1; binary protocol only, enforced by
// options.Validate).
func (c *Connection) Connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev, ok := <-c.t.Events():
		if !ok || ev != transport.EventConnected {
			return fmt.Errorf("connection: expected CONNECTED, got %v (ok=%v)", ev, ok)
		}
	}

	if c.opts.SASL {
		payload := protocol.EncodeBinarySASL(c.opts.Username, c.opts.Password)
		if err := c.t.Write(payload); err != nil {
			return err
		}
		if err := c.t.Flush(); err != nil {
			return err
		}
		c.readState = WaitingForSASL
		for c.readState == WaitingForSASL {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev := <-c.t.Events():
				if ev == transport.EventFatal {
					return fmt.Errorf("connection: transport fatal during sasl: %w", c.t.Err())
				} else if err := c.advanceRead(0); err != nil {
					return err
				}
			}
		}
		return nil
	}
	c.readState = Idle
	return nil
}

// Load issues SET for keys 0..loadCount-1 in chunks of opts.LoaderChunk
// (never more than opts.Depth in flight), sleeping opts.RateDelay between
// chunks, and drives the read loop until every issued SET has been
// acknowledged (spec.md §4.5 step 2). Indices seeded through NoteAbsentKeys
// must lie outside [0, loadCount).
func (c *Connection) Load(ctx context.Context, loadCount int) error {
	c.loading = true
	c.readState = Loading

	first := loadCount
	if first > c.opts.LoaderChunk {
		first = c.opts.LoaderChunk
	}
	if first > c.queue.Depth() {
		first = c.queue.Depth()
	}
	for i := 0; i < first; i++ {
		if err := c.issueLoadKey(loadCount); err != nil {
			return err
		}
	}
	if err := c.t.Flush(); err != nil {
		return err
	}

	for c.loading {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.t.Events():
			if !ok {
				return fmt.Errorf("connection: transport closed during load")
			}
			switch ev {
			case transport.EventReadable:
				if err := c.advanceRead(loadCount); err != nil {
					return err
				}
			case transport.EventFatal:
				return fmt.Errorf("connection: transport fatal during load: %w", c.t.Err())
			}
		case <-c.t.Timer():
			if c.opts.UDP {
				c.handleLoaderTimeout(loadCount)
			}
		}
		if err := c.t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) issueLoadKey(loadCount int) error {
	idx := c.loaderIssued
	key := c.keygen.Render(idx)
	value := c.sampleValue(idx)

	var payload []byte
	if c.opts.Binary {
		payload = protocol.EncodeBinarySet(key, value)
	} else {
		payload = protocol.EncodeTextSet(key, value)
	}
	if err := c.t.Write(payload); err != nil {
		return err
	}

	now := c.now()
	if err := c.queue.Push(queue.Operation{Type: protocol.OpSet, Key: key, Start: now}); err != nil {
		return err
	}
	c.keys.markLoaded(idx)
	c.loaderIssued++

	if c.opts.UDP {
		c.t.ArmTimer(UDPLoaderTimeout)
	}
	if c.opts.LoaderChunk > 0 && c.loaderIssued%c.opts.LoaderChunk == 0 && c.loaderIssued < loadCount {
		time.Sleep(c.opts.RateDelay)
	}
	return nil
}

func (c *Connection) handleLoaderTimeout(loadCount int) {
	c.loaderCompleted = c.loaderIssued
	for !c.queue.Empty() {
		c.queue.Pop()
	}
	c.finishLoading()
}

func (c *Connection) finishLoading() {
	c.loading = false
	c.readState = Idle
	c.writeState = InitWrite
	c.startTime = c.now()
}

// Run drives the measurement phase: it selects over transport events and
// the connection's single-shot timer until the exit condition (spec.md
// §4.5 step 3) is reached or an error occurs.
func (c *Connection) Run(ctx context.Context) error {
	if c.startTime.IsZero() {
		c.startTime = c.now()
	}
	if err := c.driveWrite(); err != nil {
		return err
	}
	if err := c.t.Flush(); err != nil {
		return err
	}
	for !c.done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.t.Events():
			if !ok {
				return nil
			}
			switch ev {
			case transport.EventReadable:
				if err := c.advanceRead(c.opts.Records); err != nil {
					return err
				}
			case transport.EventFatal:
				return fmt.Errorf("connection: transport fatal: %w", c.t.Err())
			}
		case <-c.t.Timer():
			if err := c.driveWrite(); err != nil {
				return err
			}
		}
		if err := c.t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) checkExit(now time.Time) bool {
	if c.opts.Time > 0 && now.After(c.startTime.Add(c.opts.Time)) {
		return true
	}
	if c.opts.LoadOnly && !c.loading && c.readState == Idle && c.queue.Empty() {
		return true
	}
	return false
}

// Close releases the underlying transport.
func (c *Connection) Close() error {
	return c.t.Close()
}
