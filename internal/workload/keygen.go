package workload

import (
	"fmt"

	"github.com/andrewbartolo/mutilate/internal/options"
)

// keyGenerator renders integer key indices into the zero-padded key strings
// mutilate has always used, so that keys sort and compress the same way
// across runs: "key0000042" style padding to a fixed width.
type keyGenerator struct {
	width int
}

// NewKeyGenerator builds the KeyGenerator for a key universe of the given
// size. The rendered width is the larger of the digit width needed to
// represent every index in [0, records) and the configured key-size
// distribution's mean minus the "key" prefix (spec.md §3 `key_size`), so
// that -keysize can still force longer keys than records alone would need.
func NewKeyGenerator(records int, keySize options.Distribution) KeyGenerator {
	width := len(fmt.Sprintf("%d", records))
	if want := int(keySize.Mean) - len("key"); want > width {
		width = want
	}
	if width < 1 {
		width = 1
	}
	return &keyGenerator{width: width}
}

func (g *keyGenerator) Render(index int) string {
	return fmt.Sprintf("key%0*d", g.width, index)
}
