// Package i2cbus serialises access to a shared I2C bus.
//
// The Arbiter holds the only reference to the physical bus handle; every
// client goes through it, so at most one transaction is in flight at any
// instant. The lock is released on every exit path, including a panic inside
// the critical section.
//
// One logical sensor exchange (command write, conversion delay, response
// read) is issued as two separate acquisitions: the delay between them is NOT
// covered by the lock, so another client may interleave its own transaction
// during that wait. The two activities in this firmware never overlap, which
// makes that acceptable; Transact is available for callers that want the
// whole span held instead.
package i2cbus

import (
	"context"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"airsense-go/errcode"
	"airsense-go/x/timex"
)

// Arbiter owns the bus handle and grants exclusive, time-bounded access.
type Arbiter struct {
	mu  sync.Mutex
	bus drivers.I2C
}

// New wraps the physical bus. The handle must not be used directly after
// being handed over.
func New(bus drivers.I2C) *Arbiter {
	return &Arbiter{bus: bus}
}

// WithExclusive runs fn with the bus locked. The lock is released
// unconditionally when fn returns (or panics), before the next waiter
// proceeds.
func (a *Arbiter) WithExclusive(fn func(bus drivers.I2C) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.bus)
}

// Write performs one locked write transaction to addr.
func (a *Arbiter) Write(addr uint16, w []byte) error {
	return a.WithExclusive(func(bus drivers.I2C) error {
		if err := bus.Tx(addr, w, nil); err != nil {
			return &errcode.E{C: errcode.I2CWriteFailed, Op: "i2cbus.Write", Err: err}
		}
		return nil
	})
}

// Read performs one locked read transaction from addr into r.
func (a *Arbiter) Read(addr uint16, r []byte) error {
	return a.WithExclusive(func(bus drivers.I2C) error {
		if err := bus.Tx(addr, nil, r); err != nil {
			return &errcode.E{C: errcode.I2CReadFailed, Op: "i2cbus.Read", Err: err}
		}
		return nil
	})
}

// Transact holds the lock across the whole write/delay/read span of one
// logical transaction, guaranteeing no interleaving during the conversion
// delay. The conditioning and measurement activities deliberately use the
// split Write/Read form instead; see the package comment.
func (a *Arbiter) Transact(ctx context.Context, addr uint16, w []byte, delay time.Duration, r []byte) error {
	return a.WithExclusive(func(bus drivers.I2C) error {
		if err := bus.Tx(addr, w, nil); err != nil {
			return &errcode.E{C: errcode.I2CWriteFailed, Op: "i2cbus.Transact", Err: err}
		}
		if err := timex.Sleep(ctx, delay); err != nil {
			return err
		}
		if len(r) == 0 {
			return nil
		}
		if err := bus.Tx(addr, nil, r); err != nil {
			return &errcode.E{C: errcode.I2CReadFailed, Op: "i2cbus.Transact", Err: err}
		}
		return nil
	})
}
