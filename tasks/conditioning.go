// Package tasks contains the two bus activities (conditioning warm-up and
// steady-state measurement) and the one-shot handoff between them. Both are
// cooperative loops: every bus transaction, timed delay and channel send is
// a suspension point, and context cancellation is the only early exit.
package tasks

import (
	"context"

	log "github.com/sirupsen/logrus"

	"airsense-go/config"
	"airsense-go/drivers/sgp41"
	"airsense-go/gasindex"
	"airsense-go/i2cbus"
	"airsense-go/indicator"
	"airsense-go/msgbus"
	"airsense-go/x/timex"
)

// Conditioning runs the mandatory warm-up sequence once at startup and
// signals Done when the sensor may be trusted for steady-state measurement.
//
// Per cycle: indicator intent, command write, 50 ms conversion wait, 3-byte
// read, raw VOC fed to the post-processor (index discarded, diagnostics
// only), 1 s pause. A failed write or read is logged and skipped; the cycle
// still consumes its full time budget and the sequence is never aborted.
type Conditioning struct {
	Bus  *i2cbus.Arbiter
	Addr uint16

	Cfg     config.Conditioning
	Comp    config.Compensation
	Palette config.Palette

	VOC       *gasindex.Algorithm
	Intents   chan<- indicator.Intent
	Telemetry *msgbus.Bus // optional
	Sleep     timex.Sleeper
	Done      *Completion
}

// Run executes the warm-up sequence and terminates. The returned error is
// non-nil only when ctx was cancelled mid-sequence; Done is signalled on the
// normal path only.
func (t *Conditioning) Run(ctx context.Context) error {
	t.fillDefaults()
	lg := log.WithField("task", "conditioning")
	lg.WithField("cycles", t.Cfg.Cycles).Info("starting conditioning phase")

	publishState(t.Telemetry, StateConditioning)
	if err := t.sendIntent(ctx, solid(t.Palette.Booting)); err != nil {
		return err
	}

	for i := 1; i <= t.Cfg.Cycles; i++ {
		clg := lg.WithField("cycle", i)
		clg.Debugf("conditioning %d/%d", i, t.Cfg.Cycles)

		if err := t.sendIntent(ctx, solid(t.Palette.Conditioning)); err != nil {
			return err
		}

		frame := sgp41.ConditioningFrame(t.Comp.TempC, t.Comp.RHPct)
		writeOK := true
		if err := t.Bus.Write(t.Addr, frame[:]); err != nil {
			writeOK = false
			clg.WithError(err).Warn("failed to send conditioning command")
		}

		// The conversion wait is taken even after a failed write so every
		// cycle consumes the same budget.
		if err := t.Sleep(ctx, t.Cfg.ConversionDelay()); err != nil {
			return err
		}

		ok := false
		if writeOK {
			ok = t.readCycle(clg)
		}
		if t.Telemetry != nil {
			t.Telemetry.Publish(TopicConditioning, Progress{Cycle: i, Total: t.Cfg.Cycles, OK: ok})
		}

		if err := t.Sleep(ctx, t.Cfg.CyclePause()); err != nil {
			return err
		}
	}

	if err := t.sendIntent(ctx, solid(t.Palette.Ready)); err != nil {
		return err
	}
	t.Done.Signal()
	lg.Info("conditioning complete")
	return nil
}

// readCycle reads and processes one conditioning response. Failures are
// logged and reported false; they never abort the sequence.
func (t *Conditioning) readCycle(lg *log.Entry) bool {
	buf := make([]byte, sgp41.ConditioningResponseLen)
	if err := t.Bus.Read(t.Addr, buf); err != nil {
		lg.WithError(err).Warn("failed to read conditioning response")
		return false
	}
	vals, err := sgp41.ParseRaw(buf)
	if err != nil {
		lg.WithError(err).Warn("conditioning response rejected")
		return false
	}
	raw := vals[0]
	idx := t.VOC.Process(int32(raw))
	lg.WithFields(log.Fields{"voc_raw": raw, "voc_index": idx}).Debug("conditioning sample")
	return true
}

func (t *Conditioning) sendIntent(ctx context.Context, in indicator.Intent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case t.Intents <- in:
		return nil
	}
}

func (t *Conditioning) fillDefaults() {
	def := config.Default()
	if t.Addr == 0 {
		t.Addr = sgp41.Address
	}
	if t.Cfg.Cycles <= 0 {
		t.Cfg = def.Conditioning
	}
	if t.Comp == (config.Compensation{}) {
		t.Comp = def.Measurement.Compensation
	}
	if t.Palette == (config.Palette{}) {
		t.Palette = def.Indicator.Palette
	}
	if t.VOC == nil {
		t.VOC = gasindex.New()
	}
	if t.Sleep == nil {
		t.Sleep = timex.Sleep
	}
	if t.Done == nil {
		t.Done = NewCompletion()
	}
}

func solid(c config.RGB) indicator.Intent {
	return indicator.Solid(c.R, c.G, c.B)
}
