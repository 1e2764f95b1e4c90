package tasks

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"airsense-go/config"
	"airsense-go/drivers/sgp41"
	"airsense-go/gasindex"
	"airsense-go/i2cbus"
	"airsense-go/indicator"
	"airsense-go/msgbus"
	"airsense-go/x/timex"
)

// Measurement is the steady-state activity. It awaits the conditioning
// handoff, then loops forever: command write, 50 ms conversion wait, 6-byte
// read, post-processing, classification, one Blink intent, 1 s pause.
//
// Any failed transaction (write, read, or a response rejected by checksum)
// costs the cycle: it is logged, the rest of the cycle is skipped, and the
// loop continues after the fixed penalty delay. The penalty equals the
// steady-state pause, so a disconnected sensor is polled no faster than a
// healthy one.
type Measurement struct {
	Bus  *i2cbus.Arbiter
	Addr uint16

	Cfg         config.Measurement
	Thresholds  config.Thresholds
	Palette     config.Palette
	BlinkPeriod time.Duration

	VOC       *gasindex.Algorithm
	NOx       *gasindex.Algorithm
	Intents   chan<- indicator.Intent
	Telemetry *msgbus.Bus // optional
	Sleep     timex.Sleeper
	Ready     *Completion
}

// Run blocks until conditioning completes, then measures forever. It returns
// only when ctx is cancelled.
func (t *Measurement) Run(ctx context.Context) error {
	t.fillDefaults()
	lg := log.WithField("task", "measurement")

	// Await the conditioning handoff; no bus traffic before it.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Ready.Done():
	}

	lg.Info("starting normal measurements")
	publishState(t.Telemetry, StateMeasuring)

	for cycle := 1; ; cycle++ {
		clg := lg.WithField("cycle", cycle)

		frame := sgp41.MeasureFrame(t.Cfg.Compensation.TempC, t.Cfg.Compensation.RHPct)
		if err := t.Bus.Write(t.Addr, frame[:]); err != nil {
			clg.WithError(err).Error("failed to send measurement command")
			if err := t.Sleep(ctx, t.Cfg.PenaltyDelay()); err != nil {
				return err
			}
			continue
		}

		if err := t.Sleep(ctx, t.Cfg.ConversionDelay()); err != nil {
			return err
		}

		buf := make([]byte, sgp41.MeasureResponseLen)
		if err := t.Bus.Read(t.Addr, buf); err != nil {
			clg.WithError(err).Error("failed to read measurement data")
			if err := t.Sleep(ctx, t.Cfg.PenaltyDelay()); err != nil {
				return err
			}
			continue
		}
		vals, err := sgp41.ParseRaw(buf)
		if err != nil {
			clg.WithError(err).Error("measurement response rejected")
			if err := t.Sleep(ctx, t.Cfg.PenaltyDelay()); err != nil {
				return err
			}
			continue
		}

		vocRaw, noxRaw := vals[0], vals[1]
		vocIdx := t.VOC.Process(int32(vocRaw))
		noxIdx := t.NOx.Process(int32(noxRaw))
		clg.WithFields(log.Fields{
			"voc_raw": vocRaw, "nox_raw": noxRaw,
			"voc_index": vocIdx, "nox_index": noxIdx,
		}).Debug("measurement sample")

		if vocIdx > t.Thresholds.VOCSevere {
			clg.WithField("voc_index", vocIdx).Warn("high VOC levels detected")
		}
		if noxIdx > t.Thresholds.NOxAlert {
			clg.WithField("nox_index", noxIdx).Warn("high NOx levels detected")
		}

		publishReading(t.Telemetry, TopicVOC, vocRaw, vocIdx)
		publishReading(t.Telemetry, TopicNOx, noxRaw, noxIdx)

		col := Classify(vocIdx, noxIdx, t.Thresholds, t.Palette)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t.Intents <- indicator.Blink(col.R, col.G, col.B, t.BlinkPeriod):
		}

		if err := t.Sleep(ctx, t.Cfg.CyclePause()); err != nil {
			return err
		}
	}
}

func (t *Measurement) fillDefaults() {
	def := config.Default()
	if t.Addr == 0 {
		t.Addr = sgp41.Address
	}
	if t.Cfg == (config.Measurement{}) {
		t.Cfg = def.Measurement
	}
	if t.Thresholds == (config.Thresholds{}) {
		t.Thresholds = def.Thresholds
	}
	if t.Palette == (config.Palette{}) {
		t.Palette = def.Indicator.Palette
	}
	if t.BlinkPeriod <= 0 {
		t.BlinkPeriod = def.Indicator.BlinkPeriod()
	}
	if t.VOC == nil {
		t.VOC = gasindex.New()
	}
	if t.NOx == nil {
		t.NOx = gasindex.New()
	}
	if t.Sleep == nil {
		t.Sleep = timex.Sleep
	}
	if t.Ready == nil {
		t.Ready = NewCompletion()
	}
}
