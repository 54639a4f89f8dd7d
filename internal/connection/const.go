package connection

import "time"

// Timing constants pulled out of spec.md's prose into named values,
// following server/config.go's convention of collecting timing constants in
// one file rather than scattering magic numbers through the state machines.
const (
	// ModerateDelay is the minimum gap enforced between the last received
	// response and the next issue when `moderate` is set (spec.md §4.4).
	ModerateDelay = 250 * time.Microsecond

	// SkipLateThreshold is how far behind schedule an issue must be before
	// the `skip` catch-up rule considers dropping arrival slots (spec.md
	// §4.4: "the issue was >=5ms late").
	SkipLateThreshold = 5 * time.Millisecond

	// SkipCatchupWindow bounds how far skip() advances the arrival clock:
	// it stops once next_time is within this window of now (spec.md §4.4:
	// "until next_time >= now - 4ms").
	SkipCatchupWindow = 4 * time.Millisecond

	// UDPLoaderTimeout is how long the loader waits for a response before
	// assuming the datagram was dropped and forcing completion (spec.md
	// §4.5: "a 3-second read timeout forces loader_completed :=
	// loader_issued and drains the queue").
	UDPLoaderTimeout = 3 * time.Second
)
