// Package sgp41 implements the command framing for the SGP41 VOC/NOx raw
// signal sensor:
//
//	cmd := sgp41.MeasureFrame(25.0, 50.0) // 2-byte opcode + compensation block
//	...write cmd, wait the conversion delay, read 6 bytes...
//	vals, err := sgp41.ParseRaw(buf)      // checksum-verified big-endian ticks
//
// Every multi-byte field on the wire is a 2-byte big-endian value followed by
// a CRC-8 over just that pair (poly 0x31, init 0xFF, MSB-first, no final XOR).
//
// The package is pure: it never touches the bus. Transport scheduling and
// mutual exclusion live in i2cbus; this package only builds and checks bytes.
package sgp41

import (
	"encoding/binary"

	"airsense-go/errcode"
)

// I2C address.
const Address = 0x59

// Commands (per datasheet).
var (
	CmdConditioning = [2]byte{0x26, 0x12}
	CmdMeasureRaw   = [2]byte{0x26, 0x19}
	CmdSerialNumber = [2]byte{0x36, 0x82}
)

// Response sizes in bytes: each 16-bit value travels as a 3-byte group.
const (
	ConditioningResponseLen = 3 // VOC only
	MeasureResponseLen      = 6 // VOC + NOx
	SerialResponseLen       = 9 // 3 groups, 48-bit serial
)

// Checksum computes the sensor's CRC-8: polynomial 0x31, initial value 0xFF,
// MSB-first, no final XOR. Deterministic, no error cases.
func Checksum(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Compensation converts ambient temperature and relative humidity into the
// fixed-point block the measure commands carry:
//
//	[hum_hi, hum_lo, crc(hum), temp_hi, temp_lo, crc(temp)]
//
// Conversion truncates rather than rounds; the resulting ticks are what the
// sensor has always been driven with, so this stays bit-compatible. Inputs
// outside the nominal ranges (-45..130 degC, 0..100 %RH) saturate at the tick
// range limits.
func Compensation(tempC, rhPct float32) [6]byte {
	humTicks := ticks((rhPct / 100.0) * 65535.0)
	tempTicks := ticks(((tempC + 45.0) / 175.0) * 65535.0)

	var out [6]byte
	binary.BigEndian.PutUint16(out[0:2], humTicks)
	out[2] = Checksum(out[0:2])
	binary.BigEndian.PutUint16(out[3:5], tempTicks)
	out[5] = Checksum(out[3:5])
	return out
}

// ticks truncates to the 16-bit tick range. Out-of-range float to integer
// conversion is unspecified in Go, so the clamp is explicit.
func ticks(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 65535 {
		return 65535
	}
	return uint16(v)
}

// ConditioningFrame builds the 8-byte conditioning command (opcode 0x2612
// plus compensation block). A fresh frame is built per cycle; frames are
// values and are never mutated after construction.
func ConditioningFrame(tempC, rhPct float32) [8]byte {
	return frame(CmdConditioning, tempC, rhPct)
}

// MeasureFrame builds the 8-byte raw-signal measurement command (opcode
// 0x2619 plus compensation block).
func MeasureFrame(tempC, rhPct float32) [8]byte {
	return frame(CmdMeasureRaw, tempC, rhPct)
}

func frame(cmd [2]byte, tempC, rhPct float32) [8]byte {
	var out [8]byte
	out[0], out[1] = cmd[0], cmd[1]
	comp := Compensation(tempC, rhPct)
	copy(out[2:], comp[:])
	return out
}

// ParseRaw validates and extracts the 16-bit channel values from a response.
// buf must be a whole number of 3-byte groups (2 data bytes + 1 CRC). Any CRC
// mismatch rejects the whole frame. Callers treat a rejected frame exactly
// like a failed read: discard the cycle and retry on the next one.
func ParseRaw(buf []byte) ([]uint16, error) {
	if len(buf) == 0 || len(buf)%3 != 0 {
		return nil, errcode.ShortResponse
	}
	vals := make([]uint16, 0, len(buf)/3)
	for i := 0; i+3 <= len(buf); i += 3 {
		if Checksum(buf[i:i+2]) != buf[i+2] {
			return nil, errcode.CRCMismatch
		}
		vals = append(vals, binary.BigEndian.Uint16(buf[i:i+2]))
	}
	return vals, nil
}

// ParseSerial decodes the 9-byte serial-number response into the 48-bit
// device serial. Same per-group CRC rule as ParseRaw.
func ParseSerial(buf []byte) (uint64, error) {
	if len(buf) != SerialResponseLen {
		return 0, errcode.ShortResponse
	}
	words, err := ParseRaw(buf)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}
