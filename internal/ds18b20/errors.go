package ds18b20

import "errors"

// Domain errors for the ds18b20 package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, ds18b20.ErrSensorNotFound) {
//	    // handle not found case
//	}
var (
	// ErrBusInit is returned when the 1-Wire bus cannot be claimed.
	// This is fatal: no driver operation is possible without a bus.
	ErrBusInit = errors.New("ds18b20: bus init failed")

	// ErrBusScan is returned when the ROM search enumeration fails.
	// Scans are safe to retry; the previous device table is kept.
	ErrBusScan = errors.New("ds18b20: bus scan failed")

	// ErrSensorNotFound is returned when an address is not in the
	// driver's device table. This indicates a stale address, typically
	// a sensor unplugged since the last scan.
	ErrSensorNotFound = errors.New("ds18b20: sensor not found")

	// ErrReadFailed is returned by ReadOne when the conversion or
	// scratchpad read-back fails for the addressed sensor.
	ErrReadFailed = errors.New("ds18b20: read failed")

	// ErrInvalidResolution is returned when a resolution outside the
	// 9 to 12 bit range is requested.
	ErrInvalidResolution = errors.New("ds18b20: invalid resolution")

	// ErrInvalidAddress is returned when an address string cannot be
	// parsed as a 16 character hex ROM code.
	ErrInvalidAddress = errors.New("ds18b20: invalid address")
)
