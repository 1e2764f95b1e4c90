// Package indicator decouples measurement from the status LED.
//
// Producers push abstract intents (solid color or blink) into a small bounded
// channel; a single activity drains it and drives the physical driver. The
// channel gives the producers exactly Capacity slots of backpressure: a send
// into a full channel suspends until the consumer catches up, and no intent
// is ever dropped or overwritten.
package indicator

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"airsense-go/x/timex"
)

// Capacity of the intent channel.
const Capacity = 4

// DefaultBlinkPeriod is used by Blink intents with a zero period.
const DefaultBlinkPeriod = 300 * time.Millisecond

// Mode discriminates the intent variants.
type Mode uint8

const (
	ModeSolid Mode = iota
	ModeBlink
)

// Intent is a value type; it is copied into the channel and carries no
// mutable state.
type Intent struct {
	Mode    Mode
	R, G, B uint8
	Period  time.Duration // blink only
}

// Solid requests a steady color.
func Solid(r, g, b uint8) Intent {
	return Intent{Mode: ModeSolid, R: r, G: g, B: b}
}

// Blink requests a single-shot blink: off, wait period, then the target
// color once. It does not repeat; see Run.
func Blink(r, g, b uint8, period time.Duration) Intent {
	return Intent{Mode: ModeBlink, R: r, G: g, B: b, Period: period}
}

// Driver is the physical indicator boundary. Fire-and-forget: errors, if the
// hardware has any, are swallowed by the implementation.
type Driver interface {
	SetColor(r, g, b uint8)
}

// NewChannel returns the bounded intent queue. Created once at startup and
// kept for the process lifetime.
func NewChannel() chan Intent {
	return make(chan Intent, Capacity)
}

// Run drains ch and applies each intent to drv, one at a time, until ctx is
// cancelled. It is the channel's only consumer.
//
// Blink is applied literally as the firmware always has: set black, wait the
// period, set the target color once and leave it there. There is no
// continuous toggling.
func Run(ctx context.Context, ch <-chan Intent, drv Driver, sleep timex.Sleeper) {
	if sleep == nil {
		sleep = timex.Sleep
	}
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-ch:
			apply(ctx, in, drv, sleep)
		}
	}
}

func apply(ctx context.Context, in Intent, drv Driver, sleep timex.Sleeper) {
	switch in.Mode {
	case ModeSolid:
		log.WithFields(log.Fields{"r": in.R, "g": in.G, "b": in.B}).Debug("indicator: solid")
		drv.SetColor(in.R, in.G, in.B)
	case ModeBlink:
		period := in.Period
		if period <= 0 {
			period = DefaultBlinkPeriod
		}
		log.WithFields(log.Fields{"r": in.R, "g": in.G, "b": in.B, "period_ms": period.Milliseconds()}).
			Debug("indicator: blink")
		drv.SetColor(0, 0, 0)
		if err := sleep(ctx, period); err != nil {
			return
		}
		drv.SetColor(in.R, in.G, in.B)
	}
}
