package connection

import (
	"time"

	"github.com/andrewbartolo/mutilate/internal/protocol"
	"github.com/andrewbartolo/mutilate/internal/queue"
)

// driveWrite drives the write-pacing state machine (spec.md §4.4). It is
// called after every read completion (a queue slot just freed up) and on
// every timer expiry (an arrival was due, or a moderation/catch-up deadline
// passed).
func (c *Connection) driveWrite() error {
	now := c.now()
	if c.checkExit(now) {
		c.done = true
		return nil
	}

	for {
		switch c.writeState {
		case InitWrite:
			d := c.iaGen.Sample()
			c.nextTime = now.Add(durationFromSeconds(d))
			c.writeState = WaitingForTime

		case Issuing:
			if c.queue.Full() {
				c.writeState = WaitingForOpq
				continue
			}
			now = c.now()
			if now.Before(c.nextTime) {
				c.writeState = WaitingForTime
				continue
			}
			if c.opts.Moderate {
				earliest := c.lastRx.Add(ModerateDelay)
				if now.Before(earliest) {
					c.nextTime = earliest
					c.writeState = WaitingForTime
					continue
				}
			}

			late := now.Sub(c.nextTime)
			if err := c.issueOne(now); err != nil {
				return err
			}
			c.lastTx = now
			c.nextTime = c.nextTime.Add(durationFromSeconds(c.iaGen.Sample()))

			if c.opts.Skip && c.opts.Lambda > 0 && late >= SkipLateThreshold && c.queue.Full() {
				floor := now.Add(-SkipCatchupWindow)
				for c.nextTime.Before(floor) {
					c.nextTime = c.nextTime.Add(durationFromSeconds(c.iaGen.Sample()))
					c.sink.AddSkip()
				}
			}
			// Stay in ISSUING: a high arrival rate or a depth cap release
			// may allow issuing several operations back to back before the
			// arrival clock catches up to now.

		case WaitingForTime:
			now = c.now()
			if now.Before(c.nextTime) {
				c.t.ArmTimer(c.nextTime.Sub(now))
				return nil
			}
			c.writeState = Issuing

		case WaitingForOpq:
			if c.queue.Full() {
				return nil
			}
			c.writeState = Issuing

		default:
			return nil
		}

		if c.checkExit(c.now()) {
			c.done = true
			return nil
		}
	}
}

func durationFromSeconds(s float64) time.Duration {
	if s < 0 {
		s = 0
	}
	return time.Duration(s * float64(time.Second))
}

// issueOne selects, encodes, and writes one operation, then pushes it onto
// the in-flight queue.
func (c *Connection) issueOne(now time.Time) error {
	sel, err := c.selectOp()
	if err != nil {
		return err
	}

	var payload []byte
	switch sel.op {
	case protocol.OpGet:
		if c.opts.Binary {
			payload = protocol.EncodeBinaryGet(sel.key)
		} else {
			payload = protocol.EncodeTextGet(sel.key)
		}
	case protocol.OpSet:
		if c.opts.Binary {
			payload = protocol.EncodeBinarySet(sel.key, sel.value)
		} else {
			payload = protocol.EncodeTextSet(sel.key, sel.value)
		}
	case protocol.OpDelete:
		if c.opts.Binary {
			payload = protocol.EncodeBinaryDelete(sel.key)
		} else {
			payload = protocol.EncodeTextDelete(sel.key)
		}
	}

	if err := c.t.Write(payload); err != nil {
		return err
	}
	if !c.loading {
		c.sink.AddTxBytes(len(payload))
	}

	if err := c.queue.Push(queue.Operation{Type: sel.op, Key: sel.key, Start: now}); err != nil {
		return err
	}
	c.sink.LogOp(c.queue.Len())
	return nil
}
