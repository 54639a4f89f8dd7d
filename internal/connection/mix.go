package connection

import (
	"github.com/andrewbartolo/mutilate/internal/protocol"
	"github.com/andrewbartolo/mutilate/internal/workload"
)

// mixCase identifies one of the seven weighted operation kinds spec.md §4.4
// enumerates, in table order.
type mixCase int

const (
	caseSetAbsent mixCase = iota // sa
	caseSetLoadedSameSize        // slss
	caseSetLoadedDiffSize        // slds
	caseGetAbsent                // ga
	caseGetLoaded                // gl
	caseDeleteAbsent             // da
	caseDeleteLoaded             // dl
)

// selectedOp is what the mix decided to issue: an operation kind, a key, and
// (for SET) a value to send.
type selectedOp struct {
	op    protocol.Op
	key   string
	value []byte
}

// selectOp picks the next operation. With no ratios configured (RatioSum ==
// 0) it falls back to a plain uniform-random key with `update` probability
// of SET vs GET, matching mutilate's non-mixed-workload mode. Otherwise it
// draws a weighted case from IntRatios and dispatches to mixCase logic.
func (c *Connection) selectOp() (selectedOp, error) {
	if c.opts.RatioSum == 0 {
		idx := c.rnd.Intn(c.opts.Records)
		key := c.keygen.Render(idx)
		if c.rnd.Float64() < c.opts.Update {
			return selectedOp{op: protocol.OpSet, key: key, value: c.sampleValue(idx)}, nil
		}
		return selectedOp{op: protocol.OpGet, key: key}, nil
	}

	r := c.rnd.Intn(c.opts.RatioSum)
	idx := c.rnd.Intn(c.opts.Records)
	key := c.keygen.Render(idx)

	acc := 0
	for mc := caseSetAbsent; mc <= caseDeleteLoaded; mc++ {
		acc += c.opts.IntRatios[mc]
		if r < acc {
			return c.applyMixCase(mc, idx, key)
		}
	}
	// Unreachable when IntRatios sums to RatioSum, as Options.Validate
	// requires; fall back to a harmless GET rather than panicking.
	return selectedOp{op: protocol.OpGet, key: key}, nil
}

// applyMixCase implements the per-case table from spec.md §4.4. Cases slss,
// slds, ga, gl, and da contain placeholder-looking behavior that does not
// match their names (e.g. slss issues a GET instead of a SET along one
// branch). spec.md §9 flags these explicitly as preserved quirks inherited
// from the reference implementation and instructs against "fixing" them
// during migration, so they are reproduced here verbatim rather than
// corrected.
func (c *Connection) applyMixCase(mc mixCase, idx int, key string) (selectedOp, error) {
	switch mc {
	case caseSetAbsent:
		aidx, ok := c.keys.popAbsent()
		if !ok {
			return selectedOp{}, ErrSetAbsentEmpty
		}
		c.keys.markLoaded(aidx)
		akey := c.keygen.Render(aidx)
		return selectedOp{op: protocol.OpSet, key: akey, value: c.sampleValue(aidx)}, nil

	case caseSetLoadedSameSize:
		if !c.keys.isLoaded(idx) {
			// Preserved quirk: falls through to a GET instead of promoting
			// idx into loaded and issuing the intended SET.
			return selectedOp{op: protocol.OpGet, key: key}, nil
		}
		return selectedOp{op: protocol.OpSet, key: key, value: c.sampleValue(idx)}, nil

	case caseSetLoadedDiffSize:
		// Preserved quirk: this case is meant to re-SET a loaded key with a
		// different value size, but issues a plain GET unconditionally.
		return selectedOp{op: protocol.OpGet, key: key}, nil

	case caseGetAbsent:
		aidx, ok := c.keys.rotateAbsent()
		if !ok {
			// Preserved quirk: falls back to the uniformly-drawn key rather
			// than treating an empty absent pool as fatal, unlike sa.
			return selectedOp{op: protocol.OpGet, key: key}, nil
		}
		return selectedOp{op: protocol.OpGet, key: c.keygen.Render(aidx)}, nil

	case caseGetLoaded:
		// Preserved quirk: ignores membership in loaded and always issues a
		// GET against the uniformly-drawn key.
		return selectedOp{op: protocol.OpGet, key: key}, nil

	case caseDeleteAbsent:
		aidx, ok := c.keys.rotateAbsent()
		if !ok {
			return selectedOp{op: protocol.OpGet, key: key}, nil
		}
		return selectedOp{op: protocol.OpDelete, key: c.keygen.Render(aidx)}, nil

	case caseDeleteLoaded:
		if c.keys.isLoaded(idx) {
			c.keys.unmarkLoaded(idx)
			c.keys.pushAbsent(idx)
			return selectedOp{op: protocol.OpDelete, key: key}, nil
		}
		return selectedOp{op: protocol.OpGet, key: key}, nil

	default:
		return selectedOp{op: protocol.OpGet, key: key}, nil
	}
}

func (c *Connection) sampleValue(idx int) []byte {
	n := c.valueSizeGen.Sample()
	buf := make([]byte, n)
	workload.FillValue(buf, n, idx)
	return buf
}
