// Package sim provides an in-memory SGP41 and indicator for the host
// simulator and for task-level tests. The real platform bring-up is out of
// scope for the core; these stand in for it.
package sim

import (
	"encoding/binary"
	"sync"

	"airsense-go/drivers/sgp41"
	"airsense-go/errcode"
)

// Sensor emulates the SGP41 wire protocol behind the drivers.I2C interface.
// Raw tick values come from a script; the last entry repeats forever.
// Failures can be injected per measurement cycle to exercise the tasks'
// skip-and-retry paths.
type Sensor struct {
	mu sync.Mutex

	serial  uint64
	voc     []uint16
	nox     []uint16
	cursor  int
	pending [2]byte

	condWrites int
	measWrites int
	reads      int

	// Cycle numbers are 1-based counts of measurement command writes.
	FailWriteOnCycle  map[int]bool
	FailReadOnCycle   map[int]bool
	CorruptCRCOnCycle map[int]bool

	// Same, keyed on conditioning command writes.
	FailCondWriteOnCycle map[int]bool
	FailCondReadOnCycle  map[int]bool
}

// NewSensor returns a sensor with a fixed serial and flat default script.
func NewSensor(serial uint64) *Sensor {
	return &Sensor{
		serial:               serial,
		voc:                  []uint16{26400},
		nox:                  []uint16{15000},
		FailWriteOnCycle:     map[int]bool{},
		FailReadOnCycle:      map[int]bool{},
		CorruptCRCOnCycle:    map[int]bool{},
		FailCondWriteOnCycle: map[int]bool{},
		FailCondReadOnCycle:  map[int]bool{},
	}
}

// Script sets the raw tick sequences returned by successive measurement
// reads. Conditioning reads see the current VOC value without advancing.
func (s *Sensor) Script(voc, nox []uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(voc) > 0 {
		s.voc = voc
	}
	if len(nox) > 0 {
		s.nox = nox
	}
	s.cursor = 0
}

// Tx implements drivers.I2C. The arbiter always issues either a pure write
// or a pure read; a combined write+read is handled as write-then-read.
func (s *Sensor) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != sgp41.Address {
		return errcode.BadAddress
	}
	if len(w) > 0 {
		if err := s.write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return s.read(r)
	}
	return nil
}

func (s *Sensor) write(w []byte) error {
	if len(w) < 2 {
		return errcode.ShortResponse
	}
	cmd := [2]byte{w[0], w[1]}
	switch cmd {
	case sgp41.CmdConditioning:
		s.condWrites++
		if s.FailCondWriteOnCycle[s.condWrites] {
			s.pending = [2]byte{}
			return errcode.I2CWriteFailed
		}
	case sgp41.CmdMeasureRaw:
		s.measWrites++
		if s.FailWriteOnCycle[s.measWrites] {
			s.pending = [2]byte{}
			return errcode.I2CWriteFailed
		}
	case sgp41.CmdSerialNumber:
	default:
		return errcode.Error
	}
	s.pending = cmd
	return nil
}

func (s *Sensor) read(r []byte) error {
	s.reads++
	switch s.pending {
	case sgp41.CmdConditioning:
		if s.FailCondReadOnCycle[s.condWrites] {
			return errcode.I2CReadFailed
		}
		if len(r) < sgp41.ConditioningResponseLen {
			return errcode.ShortResponse
		}
		s.putGroup(r[0:3], s.voc[s.clampCursor(s.voc)], false)
		return nil

	case sgp41.CmdMeasureRaw:
		if s.FailReadOnCycle[s.measWrites] {
			return errcode.I2CReadFailed
		}
		if len(r) < sgp41.MeasureResponseLen {
			return errcode.ShortResponse
		}
		corrupt := s.CorruptCRCOnCycle[s.measWrites]
		s.putGroup(r[0:3], s.voc[s.clampCursor(s.voc)], corrupt)
		s.putGroup(r[3:6], s.nox[s.clampCursor(s.nox)], false)
		s.cursor++
		return nil

	case sgp41.CmdSerialNumber:
		if len(r) < sgp41.SerialResponseLen {
			return errcode.ShortResponse
		}
		words := []uint16{
			uint16(s.serial >> 32),
			uint16(s.serial >> 16),
			uint16(s.serial),
		}
		for i, word := range words {
			s.putGroup(r[i*3:i*3+3], word, false)
		}
		return nil
	}
	return errcode.I2CReadFailed
}

func (s *Sensor) putGroup(dst []byte, val uint16, corrupt bool) {
	binary.BigEndian.PutUint16(dst[0:2], val)
	dst[2] = sgp41.Checksum(dst[0:2])
	if corrupt {
		dst[2] ^= 0xFF
	}
}

func (s *Sensor) clampCursor(script []uint16) int {
	if s.cursor >= len(script) {
		return len(script) - 1
	}
	return s.cursor
}

// Counters for assertions.

func (s *Sensor) CondWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.condWrites
}

func (s *Sensor) MeasWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measWrites
}

func (s *Sensor) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
