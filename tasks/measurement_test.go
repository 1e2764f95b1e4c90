package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"airsense-go/config"
	"airsense-go/gasindex"
	"airsense-go/i2cbus"
	"airsense-go/indicator"
	"airsense-go/internal/sim"
)

// stepSleeper gates the measurement loop on explicit permits so tests can
// drive it cycle by cycle. A successful cycle consumes two sleeps
// (conversion wait and cycle pause), a failed write one (penalty), a failed
// read or rejected response two (conversion plus penalty).
type stepSleeper struct {
	permits chan struct{}
}

func newStepSleeper() *stepSleeper {
	return &stepSleeper{permits: make(chan struct{}, 128)}
}

func (s *stepSleeper) grant(n int) {
	for i := 0; i < n; i++ {
		s.permits <- struct{}{}
	}
}

func (s *stepSleeper) sleep(ctx context.Context, _ time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.permits:
		return nil
	}
}

func startMeasurement(t *testing.T, sensor *sim.Sensor, sleep *stepSleeper, ready *Completion) (*Measurement, chan indicator.Intent, func()) {
	t.Helper()
	intents := make(chan indicator.Intent, 8)
	task := &Measurement{
		Bus:     i2cbus.New(sensor),
		VOC:     gasindex.New(),
		NOx:     gasindex.New(),
		Intents: intents,
		Sleep:   sleep.sleep,
		Ready:   ready,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Run(ctx) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("measurement loop did not stop on cancel")
		}
	}
	return task, intents, stop
}

func awaitIntent(t *testing.T, ch <-chan indicator.Intent) indicator.Intent {
	t.Helper()
	select {
	case in := <-ch:
		return in
	case <-time.After(time.Second):
		t.Fatal("no indicator intent within deadline")
		return indicator.Intent{}
	}
}

func assertNoIntent(t *testing.T, ch <-chan indicator.Intent) {
	t.Helper()
	select {
	case in := <-ch:
		t.Fatalf("unexpected indicator intent %+v", in)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMeasurement_WaitsForConditioningHandoff(t *testing.T) {
	sensor := sim.NewSensor(1)
	sleep := newStepSleeper()
	ready := NewCompletion()
	_, intents, stop := startMeasurement(t, sensor, sleep, ready)
	defer stop()

	sleep.grant(1)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, sensor.MeasWrites(), "no bus traffic before the handoff")

	// One permit covers only the conversion wait; the loop emits the first
	// intent and then parks at the cycle pause.
	ready.Signal()
	awaitIntent(t, intents)
	assert.Equal(t, 1, sensor.MeasWrites())
}

func TestMeasurement_WriteFailureCostsTheCycle(t *testing.T) {
	sensor := sim.NewSensor(1)
	sensor.FailWriteOnCycle[2] = true
	sleep := newStepSleeper()
	ready := NewCompletion()
	ready.Signal()
	task, intents, stop := startMeasurement(t, sensor, sleep, ready)
	defer stop()

	// Cycle 1 succeeds, cycle 2 dies at the write, cycle 3 succeeds.
	// Permits: conversion 1, pause 1, penalty 2, conversion 3.
	sleep.grant(4)
	first := awaitIntent(t, intents)
	second := awaitIntent(t, intents)
	assertNoIntent(t, intents)

	assert.Equal(t, 3, sensor.MeasWrites())
	assert.Equal(t, 2, sensor.Reads(), "failed cycle attempts no read")
	assert.Equal(t, 2, task.VOC.Samples())

	// Flat default script: raw 26400, index 28, low bucket.
	pal := config.Default().Indicator.Palette
	for _, in := range []indicator.Intent{first, second} {
		assert.Equal(t, indicator.ModeBlink, in.Mode)
		assert.Equal(t, pal.VOCLow, config.RGB{R: in.R, G: in.G, B: in.B})
	}
}

func TestMeasurement_CorruptResponseDiscarded(t *testing.T) {
	sensor := sim.NewSensor(1)
	sensor.CorruptCRCOnCycle[1] = true
	sleep := newStepSleeper()
	ready := NewCompletion()
	ready.Signal()
	task, intents, stop := startMeasurement(t, sensor, sleep, ready)
	defer stop()

	// Permits: conversion 1, penalty 1, conversion 2.
	sleep.grant(3)
	awaitIntent(t, intents)
	assertNoIntent(t, intents)

	// The whole first frame is rejected; neither channel sees its value.
	assert.Equal(t, 2, sensor.MeasWrites())
	assert.Equal(t, 2, sensor.Reads())
	assert.Equal(t, 1, task.VOC.Samples())
	assert.Equal(t, 1, task.NOx.Samples())
}

func TestMeasurement_ClassificationSequence(t *testing.T) {
	sensor := sim.NewSensor(1)
	sensor.Script(
		[]uint16{26400, 30449, 33000, 33000},
		[]uint16{15000, 15000, 15000, 27500},
	)
	sleep := newStepSleeper()
	ready := NewCompletion()
	ready.Signal()
	_, intents, stop := startMeasurement(t, sensor, sleep, ready)
	defer stop()

	sleep.grant(8)
	var got []config.RGB
	for i := 0; i < 4; i++ {
		in := awaitIntent(t, intents)
		assert.Equal(t, indicator.ModeBlink, in.Mode)
		assert.Equal(t, indicator.DefaultBlinkPeriod, in.Period)
		got = append(got, config.RGB{R: in.R, G: in.G, B: in.B})
	}

	want := []config.RGB{
		{R: 0, G: 30, B: 0},  // index 28, low
		{R: 30, G: 30, B: 0}, // index 108, elevated
		{R: 30, G: 0, B: 0},  // index 160, severe
		{R: 0, G: 0, B: 30},  // NOx index 50 overrides the severe VOC
	}
	assert.Equal(t, want, got)
}
