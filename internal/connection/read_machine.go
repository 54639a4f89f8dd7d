package connection

import (
	"fmt"

	"github.com/andrewbartolo/mutilate/internal/protocol"
)

// advanceRead drives the read-protocol state machine (spec.md §4.3) against
// whatever bytes are currently buffered, looping until either it settles in
// IDLE with an empty queue or no full message is available. loadCount is
// only consulted while readState == Loading, to recognize when every issued
// SET has been acknowledged.
func (c *Connection) advanceRead(loadCount int) error {
	for {
		progressed, err := c.readStep(loadCount)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// readStep attempts one state transition. It returns progressed=false when
// the current state needs more bytes than are buffered.
func (c *Connection) readStep(loadCount int) (bool, error) {
	switch c.readState {
	case Loading:
		return c.stepLoading(loadCount)

	case Idle:
		if c.queue.Empty() {
			return false, nil
		}
		op, err := c.queue.Front()
		if err != nil {
			return false, err
		}
		switch op.Type {
		case protocol.OpGet:
			c.readState = WaitingForGet
		case protocol.OpSet:
			c.readState = WaitingForSet
		case protocol.OpDelete:
			c.readState = WaitingForDelete
		default:
			return false, fmt.Errorf("connection: unknown op type %v at head of queue", op.Type)
		}
		return true, nil

	case WaitingForSASL:
		d, ok, err := protocol.DecodeBinary(c.t.Buffered())
		if !ok {
			return false, nil
		}
		c.t.Consume(d.NBytes)
		if err != nil {
			return false, err
		}
		c.readState = Idle
		return true, nil

	case WaitingForGet:
		return c.stepWaitingForGet()

	case WaitingForGetData:
		need := c.pendingLen + 2
		buf := c.t.Buffered()
		if len(buf) < need {
			return false, nil
		}
		c.t.Consume(need)
		c.sink.AddRxBytes(need)
		c.readState = WaitingForEnd
		return true, nil

	case WaitingForEnd:
		line, n, ok := protocol.ReadLine(c.t.Buffered())
		if !ok {
			return false, nil
		}
		if !protocol.IsEnd(line) {
			return false, protocol.ErrMalformedResponse
		}
		c.t.Consume(n)
		c.sink.AddRxBytes(n)
		if err := c.completeHead(protocol.OpGet, false); err != nil {
			return false, err
		}
		c.readState = Idle
		if err := c.driveWrite(); err != nil {
			return false, err
		}
		return true, nil

	case WaitingForSet:
		return c.stepWaitingForSet()

	case WaitingForDelete:
		// Preserved quirk (spec.md §4.3, §9): DELETE completes immediately
		// without consuming a reply, regardless of protocol.
		if err := c.completeHead(protocol.OpDelete, false); err != nil {
			return false, err
		}
		c.readState = Idle
		if err := c.driveWrite(); err != nil {
			return false, err
		}
		return true, nil

	default:
		return false, fmt.Errorf("connection: unhandled read state %v", c.readState)
	}
}

func (c *Connection) stepWaitingForGet() (bool, error) {
	if c.opts.Binary {
		d, ok, err := protocol.DecodeBinary(c.t.Buffered())
		if !ok {
			return false, nil
		}
		c.t.Consume(d.NBytes)
		c.sink.AddRxBytes(d.NBytes)
		if err != nil {
			return false, err
		}
		if err := c.completeHead(protocol.OpGet, d.Miss); err != nil {
			return false, err
		}
		c.readState = Idle
		if err := c.driveWrite(); err != nil {
			return false, err
		}
		return true, nil
	}

	line, n, ok := protocol.ReadLine(c.t.Buffered())
	if !ok {
		return false, nil
	}
	if protocol.IsEnd(line) {
		c.t.Consume(n)
		c.sink.AddRxBytes(n)
		if err := c.completeHead(protocol.OpGet, true); err != nil {
			return false, err
		}
		c.readState = Idle
		if err := c.driveWrite(); err != nil {
			return false, err
		}
		return true, nil
	}
	vh, err := protocol.ParseValueHeader(line)
	if err != nil {
		return false, err
	}
	c.t.Consume(n)
	c.sink.AddRxBytes(n)
	c.pendingLen = vh.Length
	c.readState = WaitingForGetData
	return true, nil
}

func (c *Connection) stepWaitingForSet() (bool, error) {
	if c.opts.Binary {
		d, ok, err := protocol.DecodeBinary(c.t.Buffered())
		if !ok {
			return false, nil
		}
		c.t.Consume(d.NBytes)
		c.sink.AddRxBytes(d.NBytes)
		if err != nil {
			return false, err
		}
	} else {
		line, n, ok := protocol.ReadLine(c.t.Buffered())
		if !ok {
			return false, nil
		}
		_ = line // only the line boundary matters (spec.md §4.3)
		c.t.Consume(n)
		c.sink.AddRxBytes(n)
	}
	if err := c.completeHead(protocol.OpSet, false); err != nil {
		return false, err
	}
	c.readState = Idle
	if err := c.driveWrite(); err != nil {
		return false, err
	}
	return true, nil
}

// completeHead pops the head of the queue, stamps its end time, and logs it
// through the stats sink.
func (c *Connection) completeHead(opType protocol.Op, miss bool) error {
	op, err := c.queue.Pop()
	if err != nil {
		return err
	}
	op.End = c.now()
	c.lastRx = op.End
	switch opType {
	case protocol.OpGet:
		c.sink.LogGet(op, miss)
	case protocol.OpSet:
		c.sink.LogSet(op)
	case protocol.OpDelete:
		c.sink.LogDelete(op)
	}
	return nil
}

func (c *Connection) stepLoading(loadCount int) (bool, error) {
	var nbytes int
	if c.opts.Binary {
		d, ok, err := protocol.DecodeBinary(c.t.Buffered())
		if !ok {
			return false, nil
		}
		nbytes = d.NBytes
		c.t.Consume(nbytes)
		c.sink.AddRxBytes(nbytes)
		if err != nil {
			return false, err
		}
	} else {
		_, n, ok := protocol.ReadLine(c.t.Buffered())
		if !ok {
			return false, nil
		}
		nbytes = n
		c.t.Consume(nbytes)
		c.sink.AddRxBytes(nbytes)
	}

	op, err := c.queue.Pop()
	if err != nil {
		return false, err
	}
	op.End = c.now()
	c.lastRx = op.End
	c.sink.LogSet(op)
	c.loaderCompleted++

	if c.loaderIssued < loadCount {
		if err := c.issueLoadKey(loadCount); err != nil {
			return false, err
		}
	} else if c.queue.Empty() && c.loaderCompleted == loadCount {
		c.finishLoading()
	}
	return true, nil
}
