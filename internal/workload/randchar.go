package workload

import (
	"math/rand"
	"sync"
)

// randCharSize is 2^20, per spec.md §9: "a process-wide lookup table of
// deterministic random bytes (random_char[0..2^20)) is read-only and may be
// initialized once at startup."
const randCharSize = 1 << 20

var (
	randCharOnce  sync.Once
	randCharTable []byte
)

// randChar returns the process-wide read-only random byte table, building it
// on first use. It is seeded deterministically so repeated runs of the
// binary generate identical value payloads.
func randChar() []byte {
	randCharOnce.Do(func() {
		randCharTable = make([]byte, randCharSize)
		r := rand.New(rand.NewSource(0))
		r.Read(randCharTable)
	})
	return randCharTable
}

// FillValue writes n bytes of deterministic filler into buf[:n], sourced
// from the shared random_char table starting at keyIndex mod 2^20
// (spec.md §9). buf must have length >= n.
func FillValue(buf []byte, n int, keyIndex int) {
	table := randChar()
	start := keyIndex % randCharSize
	for i := 0; i < n; i++ {
		buf[i] = table[(start+i)%randCharSize]
	}
}
