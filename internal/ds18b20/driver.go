package ds18b20

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/onewire"
)

// DS18B20 function commands from the datasheet.
const (
	cmdConvert         = 0x44 // start temperature conversion
	cmdWriteScratchpad = 0x4e // write TH, TL and configuration registers
	cmdCopyScratchpad  = 0x48 // copy scratchpad to EEPROM
	cmdReadScratchpad  = 0xbe // read the 9 byte scratchpad
	cmdSkipROM         = 0xcc // address every device on the bus at once
)

// scratchpadSize is the full scratchpad including the trailing CRC byte.
const scratchpadSize = 9

// powerOnTemperature is the raw value the scratchpad holds after a
// power cycle (+85°C). A result exactly equal to it means the sensor
// answered without ever converting, so it is treated as a failed read.
const powerOnTemperature = 85 << 4

// copyScratchpadTime is how long the EEPROM write takes after a copy
// scratchpad command.
const copyScratchpadTime = 10 * time.Millisecond

// Logger defines the logging interface used by the Driver. Tests leave
// it nil for silence.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DriverOptions configures a Driver.
type DriverOptions struct {
	// Bus is the 1-Wire bus the driver owns. Required.
	Bus onewire.Bus

	// Resolution is the target conversion resolution. It floors the
	// group conversion wait until SetResolution has run against the
	// hardware. Zero means DefaultResolution.
	Resolution Resolution

	// Clock drives the conversion waits. Nil means the system clock;
	// tests inject a mock so cycles run without real sleeps.
	Clock clock.Clock

	// Logger receives driver log output. Nil disables logging.
	Logger Logger
}

// Driver owns exclusive access to one 1-Wire bus and executes the
// DS18B20 discovery and acquisition protocol on it.
//
// All public methods are safe for concurrent use. A single mutex
// serialises every bus transaction, so a scan can never interleave
// with an in-flight acquisition cycle.
type Driver struct {
	bus onewire.Bus
	clk clock.Clock
	log Logger

	mu         sync.Mutex             // serialises bus access, guards the two fields below
	resolution Resolution             // applied to newly discovered devices
	devices    map[Address]Resolution // recorded resolution per device, rebuilt by Scan

	statsMu sync.Mutex
	stats   Stats
}

// NewDriver creates a driver for the given bus.
// Call Scan before any read; the device table starts empty.
func NewDriver(opts DriverOptions) (*Driver, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	res := opts.Resolution
	if res == 0 {
		res = DefaultResolution
	}
	if !res.Valid() {
		return nil, fmt.Errorf("%w: %d bits, want 9-12", ErrInvalidResolution, int(res))
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}
	return &Driver{
		bus:        opts.Bus,
		clk:        clk,
		log:        log,
		resolution: res,
		devices:    make(map[Address]Resolution),
	}, nil
}

// Scan walks the bus's ROM search and returns every DS18B20 address
// found, in discovery order, capped at maxDevices. The boolean reports
// truncation: more matching devices were present than the cap allowed
// and the surplus was dropped, so the caller can warn the operator.
//
// Addresses failing the ROM CRC are skipped, not retried. Devices that
// survive from the previous scan keep their recorded resolution; new
// devices have their configuration register probed, since a resolution
// committed to EEPROM survives a power cycle and cannot be assumed.
func (d *Driver) Scan(maxDevices int) ([]Address, bool, error) {
	if maxDevices <= 0 {
		return nil, false, fmt.Errorf("max devices must be positive, got %d", maxDevices)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	roms, err := d.bus.Search(false)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrBusScan, err)
	}

	addrs := make([]Address, 0, len(roms))
	truncated := false
	for _, rom := range roms {
		addr := AddressFromROM(rom)
		if addr.Family() != FamilyDS18B20 {
			d.log.Debug("ignoring non-thermometer device",
				"address", addr.String(), "family", fmt.Sprintf("0x%02x", addr.Family()))
			continue
		}
		if !addr.ValidCRC() {
			d.log.Warn("discarding address with bad ROM CRC", "address", addr.String())
			continue
		}
		if len(addrs) == maxDevices {
			truncated = true
			break
		}
		addrs = append(addrs, addr)
	}

	devices := make(map[Address]Resolution, len(addrs))
	for _, addr := range addrs {
		if res, ok := d.devices[addr]; ok {
			devices[addr] = res
			continue
		}
		res, err := d.deviceResolution(addr)
		if err != nil {
			d.log.Warn("could not probe resolution, assuming 12-bit",
				"address", addr.String(), "error", err)
			res = DefaultResolution
		}
		devices[addr] = res
	}
	d.devices = devices

	if truncated {
		d.log.Warn("scan truncated, devices beyond cap ignored", "max_devices", maxDevices)
	}
	d.log.Info("bus scan complete", "devices", len(addrs), "truncated", truncated)
	return addrs, truncated, nil
}

// ReadAll runs one group acquisition cycle over the given records,
// mutating each in place. A device failing its read-back is marked
// invalid and counted, never raised: one bad sensor must not block the
// rest. Only a total protocol failure, where the broadcast itself dies
// on the wire, returns an error; even then every record is marked and
// counted first.
//
// The cycle issues a single skip-ROM broadcast so every sensor
// converts simultaneously, waits one conversion time at the slowest
// recorded resolution, then reads each scratchpad back individually.
// With n sensors this costs one conversion wait rather than n.
func (d *Driver) ReadAll(readings []*Reading) error {
	if len(readings) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.bus.Tx([]byte{cmdSkipROM, cmdConvert}, nil, onewire.StrongPullup); err != nil {
		now := d.clk.Now()
		for _, r := range readings {
			r.Valid = false
			r.LastRead = now
			r.TotalReads++
			r.FailedReads++
		}
		d.addStats(len(readings), len(readings))
		return fmt.Errorf("broadcast conversion: %w", err)
	}

	d.clk.Sleep(d.slowestResolution().ConversionTime())

	failed := 0
	for _, r := range readings {
		temp, err := d.readTemperature(r.Addr)
		r.LastRead = d.clk.Now()
		r.TotalReads++
		if err != nil {
			r.Valid = false
			r.FailedReads++
			failed++
			d.log.Warn("sensor read failed", "address", r.Addr.String(), "error", err)
			continue
		}
		r.Temperature = temp
		r.Valid = true
	}
	d.addStats(len(readings), failed)
	return nil
}

// ReadOne acquires a single sensor outside the group cycle, waiting
// only that device's own conversion time. Returns ErrSensorNotFound if
// the address is not in the device table, or ErrReadFailed wrapping
// the underlying cause.
//
// The returned reading carries counters for this attempt only; the
// aggregate stats advance as usual.
func (d *Driver) ReadOne(addr Address) (Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, ok := d.devices[addr]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %s", ErrSensorNotFound, addr)
	}

	r := Reading{Addr: addr, TotalReads: 1}
	dev := onewire.Dev{Bus: d.bus, Addr: addr.ROM()}
	if err := dev.TxPower([]byte{cmdConvert}, nil); err != nil {
		r.FailedReads = 1
		r.LastRead = d.clk.Now()
		d.addStats(1, 1)
		return r, fmt.Errorf("%w: starting conversion: %w", ErrReadFailed, err)
	}

	d.clk.Sleep(res.ConversionTime())

	temp, err := d.readTemperature(addr)
	r.LastRead = d.clk.Now()
	if err != nil {
		r.FailedReads = 1
		d.addStats(1, 1)
		return r, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	r.Temperature = temp
	r.Valid = true
	d.addStats(1, 0)
	return r, nil
}

// SetResolution reconfigures every device in the table to the given
// resolution and records it for future discoveries. Each device gets a
// scratchpad write followed by an EEPROM copy so the setting survives
// a power cycle.
//
// A device that fails the write keeps its previously recorded
// resolution, so group waits stay long enough for it. All devices are
// attempted before the first failure is reported.
func (d *Driver) SetResolution(bits int) error {
	res := Resolution(bits)
	if !res.Valid() {
		return fmt.Errorf("%w: %d bits, want 9-12", ErrInvalidResolution, bits)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.resolution = res

	failed := 0
	var firstErr error
	for addr := range d.devices {
		if err := d.setDeviceResolution(addr, res); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			d.log.Warn("resolution write failed, keeping previous value",
				"address", addr.String(), "error", err)
			continue
		}
		d.devices[addr] = res
	}

	if failed > 0 {
		return fmt.Errorf("setting %s resolution on %d of %d sensors: %w",
			res, failed, len(d.devices), firstErr)
	}
	d.log.Info("resolution updated", "resolution", res.String(), "devices", len(d.devices))
	return nil
}

// Resolution returns the currently configured resolution.
func (d *Driver) Resolution() Resolution {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolution
}

// Stats returns a copy of the aggregate acquisition counters.
func (d *Driver) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// ResetStats zeroes the aggregate counters. Per-device counters live
// on the registry's records and reset independently.
func (d *Driver) ResetStats() {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats = Stats{}
}

func (d *Driver) addStats(total, failed int) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats.TotalReads += uint64(total)
	d.stats.FailedReads += uint64(failed)
}

// slowestResolution returns the highest resolution recorded in the
// device table so a group wait covers the slowest conversion, even
// when individual devices have drifted from the configured value.
// Callers must hold mu.
func (d *Driver) slowestResolution() Resolution {
	slowest := d.resolution
	for _, res := range d.devices {
		if res > slowest {
			slowest = res
		}
	}
	return slowest
}

// readTemperature addresses one sensor, reads its scratchpad and
// decodes the raw 1/16°C value. Callers must hold mu.
func (d *Driver) readTemperature(addr Address) (float64, error) {
	spad, err := d.readScratchpad(addr)
	if err != nil {
		return 0, err
	}
	raw := int16(spad[1])<<8 | int16(spad[0])
	if raw == powerOnTemperature {
		return 0, errors.New("power-on reset value, conversion never ran")
	}
	return float64(raw) / 16, nil
}

// readScratchpad reads and CRC-checks the 9 byte scratchpad. A
// scratchpad of all 0xff bytes means nothing pulled the line low, so
// the device is reported as absent rather than corrupt.
// Callers must hold mu.
func (d *Driver) readScratchpad(addr Address) ([]byte, error) {
	dev := onewire.Dev{Bus: d.bus, Addr: addr.ROM()}
	spad := make([]byte, scratchpadSize)
	if err := dev.Tx([]byte{cmdReadScratchpad}, spad); err != nil {
		return nil, fmt.Errorf("reading scratchpad: %w", err)
	}
	if !onewire.CheckCRC(spad) {
		for _, b := range spad {
			if b != 0xff {
				return nil, errors.New("scratchpad CRC mismatch")
			}
		}
		return nil, errors.New("no response from sensor")
	}
	return spad, nil
}

// deviceResolution reads the configuration register to learn what
// resolution the device actually runs at. Callers must hold mu.
func (d *Driver) deviceResolution(addr Address) (Resolution, error) {
	spad, err := d.readScratchpad(addr)
	if err != nil {
		return 0, err
	}
	return Resolution(spad[4]>>5) + Resolution9Bit, nil
}

// setDeviceResolution writes the configuration register and commits it
// to EEPROM. The write is skipped when the device already reports the
// requested resolution. Callers must hold mu.
func (d *Driver) setDeviceResolution(addr Address, res Resolution) error {
	current, err := d.deviceResolution(addr)
	if err != nil {
		return err
	}
	if current == res {
		return nil
	}

	dev := onewire.Dev{Bus: d.bus, Addr: addr.ROM()}
	// TH and TL are written as zero; the alarm search is not used.
	if err := dev.Tx([]byte{cmdWriteScratchpad, 0, 0, res.configByte()}, nil); err != nil {
		return fmt.Errorf("writing scratchpad: %w", err)
	}
	if err := dev.TxPower([]byte{cmdCopyScratchpad}, nil); err != nil {
		return fmt.Errorf("copying scratchpad to EEPROM: %w", err)
	}
	d.clk.Sleep(copyScratchpadTime)
	return nil
}
