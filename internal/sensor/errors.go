package sensor

import "errors"

// Domain errors for the sensor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sensor.ErrSensorNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSensorNotFound is returned when an address is not in the
	// current managed set. A by-address operation hitting this holds a
	// stale reference, typically from before a rescan.
	ErrSensorNotFound = errors.New("sensor: not found")

	// ErrInvalidName is returned when a display name exceeds the
	// length limit or contains control characters.
	ErrInvalidName = errors.New("sensor: invalid display name")
)
