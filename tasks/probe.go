package tasks

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"airsense-go/drivers/sgp41"
	"airsense-go/errcode"
	"airsense-go/i2cbus"
	"airsense-go/x/timex"
)

// serialDelay is the sensor's command execution time for the serial-number
// read.
const serialDelay = time.Millisecond

// Probe checks that the sensor answers on the bus by reading its 48-bit
// serial number. It is issued at bring-up, before the activities start; a
// failure is reported to the caller, who logs it and carries on (the
// conditioning sequence will surface a genuinely dead sensor on its own).
func Probe(ctx context.Context, bus *i2cbus.Arbiter, addr uint16, sleep timex.Sleeper) (uint64, error) {
	if addr == 0 {
		addr = sgp41.Address
	}
	if sleep == nil {
		sleep = timex.Sleep
	}

	if err := bus.Write(addr, sgp41.CmdSerialNumber[:]); err != nil {
		return 0, &errcode.E{C: errcode.ProbeFailed, Op: "tasks.Probe", Err: err}
	}
	if err := sleep(ctx, serialDelay); err != nil {
		return 0, err
	}
	buf := make([]byte, sgp41.SerialResponseLen)
	if err := bus.Read(addr, buf); err != nil {
		return 0, &errcode.E{C: errcode.ProbeFailed, Op: "tasks.Probe", Err: err}
	}
	serial, err := sgp41.ParseSerial(buf)
	if err != nil {
		return 0, errors.Wrap(err, "parsing serial response")
	}
	return serial, nil
}
