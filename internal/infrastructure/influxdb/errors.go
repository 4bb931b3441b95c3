package influxdb

import "errors"

// Sentinel errors, matched with errors.Is. Write failures do not
// appear here: writes are asynchronous and report through the
// SetOnError callback instead.
var (
	// ErrNotConnected means the client is closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed initial connect or ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled means history storage is switched off in config.
	// Callers treat this as "run without history", not as a fault.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
