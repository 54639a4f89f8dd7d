package stats

import (
	"testing"
	"time"

	"github.com/andrewbartolo/mutilate/internal/queue"
)

func TestAccumulatorLogGetHitsAndMisses(t *testing.T) {
	a := NewAccumulator(100)
	start := time.Now()
	op := queue.Operation{Start: start, End: start.Add(time.Millisecond)}

	a.LogGet(op, false)
	a.LogGet(op, true)
	a.LogGet(op, false)

	snap := a.Calc()
	if snap.GetHits != 2 {
		t.Fatalf("GetHits = %d, want 2", snap.GetHits)
	}
	if snap.GetMisses != 1 {
		t.Fatalf("GetMisses = %d, want 1", snap.GetMisses)
	}
	if snap.Get.Count != 3 {
		t.Fatalf("Get.Count = %d, want 3", snap.Get.Count)
	}
}

func TestAccumulatorByteCounters(t *testing.T) {
	a := NewAccumulator(10)
	a.AddRxBytes(100)
	a.AddRxBytes(50)
	a.AddTxBytes(30)

	snap := a.Calc()
	if snap.RxBytes != 150 {
		t.Fatalf("RxBytes = %d, want 150", snap.RxBytes)
	}
	if snap.TxBytes != 30 {
		t.Fatalf("TxBytes = %d, want 30", snap.TxBytes)
	}
}

func TestAccumulatorQueueDepthTracking(t *testing.T) {
	a := NewAccumulator(10)
	a.LogOp(1)
	a.LogOp(3)
	a.LogOp(2)

	snap := a.Calc()
	if snap.MaxQueueDepth != 3 {
		t.Fatalf("MaxQueueDepth = %d, want 3", snap.MaxQueueDepth)
	}
	if snap.MeanQueueDepth != 2 {
		t.Fatalf("MeanQueueDepth = %v, want 2", snap.MeanQueueDepth)
	}
}

func TestAccumulatorSkips(t *testing.T) {
	a := NewAccumulator(10)
	a.AddSkip()
	a.AddSkip()

	if got := a.Calc().Skips; got != 2 {
		t.Fatalf("Skips = %d, want 2", got)
	}
}
