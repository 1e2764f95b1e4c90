package sim

import "sync"

// Indicator is a recording indicator driver. OnSet, when non-nil, is invoked
// for every applied color so the CLI can render it.
type Indicator struct {
	mu     sync.Mutex
	colors [][3]uint8

	OnSet func(r, g, b uint8)
}

func (d *Indicator) SetColor(r, g, b uint8) {
	d.mu.Lock()
	d.colors = append(d.colors, [3]uint8{r, g, b})
	cb := d.OnSet
	d.mu.Unlock()
	if cb != nil {
		cb(r, g, b)
	}
}

// Colors returns a copy of every color applied so far, in order.
func (d *Indicator) Colors() [][3]uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][3]uint8, len(d.colors))
	copy(out, d.colors)
	return out
}

// Last returns the most recent color, or black if none was applied yet.
func (d *Indicator) Last() [3]uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.colors) == 0 {
		return [3]uint8{}
	}
	return d.colors[len(d.colors)-1]
}
