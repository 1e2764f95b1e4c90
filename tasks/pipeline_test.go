package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsense-go/config"
	"airsense-go/gasindex"
	"airsense-go/i2cbus"
	"airsense-go/indicator"
	"airsense-go/internal/sim"
)

// Full pipeline over the simulated sensor: conditioning hands off to
// measurement, and the indicator activity applies the resulting intents.
func TestPipeline_ConditioningHandsOffToMeasurement(t *testing.T) {
	sensor := sim.NewSensor(0xBEEF)
	arb := i2cbus.New(sensor)
	led := &sim.Indicator{}
	intents := indicator.NewChannel()
	voc := gasindex.New()

	cond := &Conditioning{
		Bus:     arb,
		Cfg:     config.Conditioning{Cycles: 2, ConversionDelayMS: 1, CyclePauseMS: 1},
		VOC:     voc,
		Intents: intents,
		Sleep:   instantSleep,
		Done:    NewCompletion(),
	}
	sleep := newStepSleeper()
	meas := &Measurement{
		Bus:     arb,
		VOC:     voc,
		NOx:     gasindex.New(),
		Intents: intents,
		Sleep:   sleep.sleep,
		Ready:   cond.Done,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go indicator.Run(ctx, intents, led, instantSleep)

	measDone := make(chan error, 1)
	go func() { measDone <- meas.Run(ctx) }()

	require.NoError(t, cond.Run(ctx))
	assert.Equal(t, 2, sensor.CondWrites())

	// One measurement cycle: conversion permit in, blink out. The ready and
	// low-VOC colors coincide, so wait for the blink's leading black to know
	// the measurement intent itself was applied.
	sleep.grant(1)
	pal := config.Default().Indicator.Palette
	assert.Eventually(t, func() bool {
		colors := led.Colors()
		sawBlack := false
		for _, c := range colors {
			if c == [3]uint8{} {
				sawBlack = true
			}
		}
		return sawBlack && led.Last() == [3]uint8{pal.VOCLow.R, pal.VOCLow.G, pal.VOCLow.B}
	}, time.Second, time.Millisecond)

	colors := led.Colors()
	require.NotEmpty(t, colors)
	assert.Equal(t, [3]uint8{pal.Booting.R, pal.Booting.G, pal.Booting.B}, colors[0])
	assert.Contains(t, colors, [3]uint8{pal.Conditioning.R, pal.Conditioning.G, pal.Conditioning.B})
	assert.Contains(t, colors, [3]uint8{pal.Ready.R, pal.Ready.G, pal.Ready.B})
	assert.Contains(t, colors, [3]uint8{0, 0, 0}, "blink starts from black")
	assert.GreaterOrEqual(t, sensor.MeasWrites(), 1)

	cancel()
	select {
	case err := <-measDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("measurement loop did not stop on cancel")
	}
}
