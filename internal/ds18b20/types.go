package ds18b20

import (
	"fmt"
	"time"
)

// Resolution is the DS18B20 conversion resolution in bits. Higher
// resolutions give finer temperature steps but take longer to convert;
// each extra bit doubles the conversion time.
type Resolution int

// Supported conversion resolutions.
const (
	Resolution9Bit  Resolution = 9  // 0.5°C steps, ~94ms conversion
	Resolution10Bit Resolution = 10 // 0.25°C steps, ~188ms conversion
	Resolution11Bit Resolution = 11 // 0.125°C steps, ~375ms conversion
	Resolution12Bit Resolution = 12 // 0.0625°C steps, ~750ms conversion

	// DefaultResolution matches the DS18B20 power-on default.
	DefaultResolution = Resolution12Bit
)

// Valid reports whether the resolution is within the 9 to 12 bit
// range the sensor supports.
func (r Resolution) Valid() bool {
	return r >= Resolution9Bit && r <= Resolution12Bit
}

// ConversionTime returns how long a temperature conversion takes at
// this resolution. The datasheet maximum is 93.75ms at 9 bits,
// doubling per extra bit up to 750ms at 12 bits; the figures here are
// rounded up to whole milliseconds.
func (r Resolution) ConversionTime() time.Duration {
	return time.Duration(94<<uint(r-Resolution9Bit)) * time.Millisecond
}

// configByte returns the value for the scratchpad configuration
// register: resolution in bits 5-6, all other bits fixed at 1.
func (r Resolution) configByte() byte {
	return byte((r-Resolution9Bit)<<5) | 0x1f //nolint:mnd // datasheet register layout
}

func (r Resolution) String() string {
	return fmt.Sprintf("%d-bit", int(r))
}

// Reading is the acquisition record for one sensor. Records are owned
// by the registry layer; the driver mutates them in place during
// ReadAll so the per-device counters survive across cycles.
type Reading struct {
	// Addr identifies the sensor. Never changes after the record is
	// created; the driver addresses the device by it on every cycle.
	Addr Address `json:"address"`

	// Temperature is the last successfully converted value in Celsius.
	// Only meaningful while Valid is true; a stale value is kept after
	// a failed cycle so callers can show the last known reading.
	Temperature float64 `json:"temperature"`

	// Valid reports whether the most recent acquisition succeeded.
	Valid bool `json:"valid"`

	// LastRead is when the most recent acquisition was attempted.
	LastRead time.Time `json:"last_read"`

	// TotalReads counts acquisition attempts for this sensor.
	TotalReads uint64 `json:"total_reads"`

	// FailedReads counts attempts that ended in a communication or
	// checksum failure. Always <= TotalReads.
	FailedReads uint64 `json:"failed_reads"`
}

// Stats holds the aggregate acquisition counters across all sensors.
// They are reset independently of the per-device counters carried on
// each Reading.
type Stats struct {
	TotalReads  uint64 `json:"total_reads"`
	FailedReads uint64 `json:"failed_reads"`
}
