package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 is a float64 that can be read and written from several goroutines
// without locks. The bits live in an atomic.Uint64, so no unsafe casts are needed.
// The zero value holds 0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// Load atomically reads the value.
func (af *AtomicFloat64) Load() float64 {
	return math.Float64frombits(af.bits.Load())
}

// Smooth folds sample into an exponentially weighted moving average with weight
// alpha in (0,1]. The first sample into a zero value is taken as-is.
func (af *AtomicFloat64) Smooth(sample, alpha float64) (newVal float64) {
	for {
		old := af.bits.Load()
		prev := math.Float64frombits(old)
		if old == 0 {
			newVal = sample
		} else {
			newVal = prev + alpha*(sample-prev)
		}
		if af.bits.CompareAndSwap(old, math.Float64bits(newVal)) {
			return
		}
	}
}
