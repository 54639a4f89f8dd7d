// Package stats implements the pure-accumulator side of the stats boundary
// named in spec.md §4.6. The core calls into a Sink; nothing in this
// package drives the connection.
package stats

import (
	"sync/atomic"

	"github.com/jamiealquiza/tachymeter"

	"github.com/andrewbartolo/mutilate/internal/queue"
)

// Sink receives per-operation completion events and running counters, per
// spec.md §4.6. It is not part of the core and may be a pure accumulator.
type Sink interface {
	// LogOp is called at each issue with the queue depth observed at that
	// moment.
	LogOp(queueDepth int)
	// LogGet is called on completion of a GET; miss reports whether the
	// server reported a cache miss.
	LogGet(op queue.Operation, miss bool)
	// LogSet is called on completion of a SET.
	LogSet(op queue.Operation)
	// LogDelete is called on completion of a DELETE.
	LogDelete(op queue.Operation)
	// AddRxBytes/AddTxBytes accumulate wire byte counters.
	AddRxBytes(n int)
	AddTxBytes(n int)
	// AddSkip counts one arrival slot dropped by the `skip` catch-up rule.
	AddSkip()
}

// Accumulator is the concrete Sink used by cmd/mutilate. Latency is tracked
// per op-kind with tachymeter (grounded on
// other_examples/memcached-mctester__main.go's identical use of tachymeter
// for a load generator's per-op latency accounting); the counters tachymeter
// has no notion of (rx/tx bytes, misses, skips, queue depth) are plain
// atomics, the same bookkeeping shape as engine/metrics.go's dbMetrics.
type Accumulator struct {
	getLatency    *tachymeter.Tachymeter
	setLatency    *tachymeter.Tachymeter
	deleteLatency *tachymeter.Tachymeter

	rxBytes   atomic.Int64
	txBytes   atomic.Int64
	getMisses atomic.Int64
	getHits   atomic.Int64
	skips     atomic.Int64

	depthSum   atomic.Int64
	depthCount atomic.Int64
	depthMax   atomic.Uint64
}

// NewAccumulator builds an Accumulator sized to hold sampleSize latency
// observations per op kind; past that, tachymeter's fixed-size sample window
// wraps and new observations overwrite the oldest.
func NewAccumulator(sampleSize int) *Accumulator {
	if sampleSize < 1 {
		sampleSize = 1
	}
	cfg := &tachymeter.Config{Size: sampleSize}
	return &Accumulator{
		getLatency:    tachymeter.New(cfg),
		setLatency:    tachymeter.New(cfg),
		deleteLatency: tachymeter.New(cfg),
	}
}

func (a *Accumulator) LogOp(queueDepth int) {
	a.depthSum.Add(int64(queueDepth))
	a.depthCount.Add(1)
	updateMaxU64(&a.depthMax, uint64(queueDepth))
}

func (a *Accumulator) LogGet(op queue.Operation, miss bool) {
	a.getLatency.AddTime(op.End.Sub(op.Start))
	if miss {
		a.getMisses.Add(1)
	} else {
		a.getHits.Add(1)
	}
}

func (a *Accumulator) LogSet(op queue.Operation) {
	a.setLatency.AddTime(op.End.Sub(op.Start))
}

func (a *Accumulator) LogDelete(op queue.Operation) {
	a.deleteLatency.AddTime(op.End.Sub(op.Start))
}

func (a *Accumulator) AddRxBytes(n int) { a.rxBytes.Add(int64(n)) }
func (a *Accumulator) AddTxBytes(n int) { a.txBytes.Add(int64(n)) }
func (a *Accumulator) AddSkip()         { a.skips.Add(1) }

// Snapshot is a point-in-time rendering of the accumulated stats, used for
// end-of-run reporting.
type Snapshot struct {
	Get            *tachymeter.Metrics
	Set            *tachymeter.Metrics
	Delete         *tachymeter.Metrics
	RxBytes        int64
	TxBytes        int64
	GetHits        int64
	GetMisses      int64
	Skips          int64
	MeanQueueDepth float64
	MaxQueueDepth  uint64
}

// Calc renders a Snapshot. Safe to call once all workers have finished
// logging; tachymeter.Calc is not safe to call concurrently with AddTime.
func (a *Accumulator) Calc() Snapshot {
	count := a.depthCount.Load()
	mean := 0.0
	if count > 0 {
		mean = float64(a.depthSum.Load()) / float64(count)
	}
	return Snapshot{
		Get:            a.getLatency.Calc(),
		Set:            a.setLatency.Calc(),
		Delete:         a.deleteLatency.Calc(),
		RxBytes:        a.rxBytes.Load(),
		TxBytes:        a.txBytes.Load(),
		GetHits:        a.getHits.Load(),
		GetMisses:      a.getMisses.Load(),
		Skips:          a.skips.Load(),
		MeanQueueDepth: mean,
		MaxQueueDepth:  a.depthMax.Load(),
	}
}

func updateMaxU64(dst *atomic.Uint64, v uint64) {
	for {
		cur := dst.Load()
		if v <= cur {
			return
		}
		if dst.CompareAndSwap(cur, v) {
			return
		}
	}
}

var _ Sink = (*Accumulator)(nil)
