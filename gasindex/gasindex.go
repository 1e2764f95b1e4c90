// Package gasindex maps raw SGP41 ticks to a bounded air-quality index.
//
// The published Sensirion gas-index algorithm is treated as an external
// collaborator; this package carries the linear approximation the firmware
// ships with (index = (raw - offset) / scale, clamped to [0, IndexMax]).
// One Algorithm instance is kept per gas channel and expects samples at
// roughly 1 Hz; the cadence is assumed, not enforced.
package gasindex

// Index bounds.
const (
	IndexMin = 0
	IndexMax = 500
)

// Default tuning, shared by the VOC and NOx channels.
// Scale is chosen so that raw ticks around 30449 land near index 108.
const (
	DefaultOffset = 25000.0
	DefaultScale  = 50.0
)

// Algorithm is the stateful per-channel post-processor.
type Algorithm struct {
	offset float32
	scale  float32

	samples int
	last    int32
}

// New returns an Algorithm with the default linear tuning.
func New() *Algorithm {
	return NewWithTuning(DefaultOffset, DefaultScale)
}

// NewWithTuning returns an Algorithm with explicit offset/scale.
// A zero or negative scale falls back to DefaultScale.
func NewWithTuning(offset, scale float32) *Algorithm {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Algorithm{offset: offset, scale: scale}
}

// Process converts one raw tick sample to an index. The result is clamped to
// [IndexMin, IndexMax]; ticks below the offset report 0 rather than negative.
func (a *Algorithm) Process(raw int32) int32 {
	idx := int32((float32(raw) - a.offset) / a.scale)
	idx = clamp(idx, IndexMin, IndexMax)
	a.samples++
	a.last = idx
	return idx
}

// Samples reports how many raw values have been fed in. Diagnostics only.
func (a *Algorithm) Samples() int { return a.samples }

// Last returns the most recently produced index, 0 before the first sample.
func (a *Algorithm) Last() int32 { return a.last }

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
