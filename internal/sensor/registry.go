package sensor

import (
	"context"
	"fmt"
	"sync"
	"unicode"

	"github.com/nerrad567/gray-logic-onewire/internal/ds18b20"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Driver is the slice of the bus driver the registry depends on.
// Implemented by *ds18b20.Driver.
type Driver interface {
	Scan(maxDevices int) ([]ds18b20.Address, bool, error)
	ReadAll(readings []*ds18b20.Reading) error
	Stats() ds18b20.Stats
	ResetStats()
}

// NamingStore persists display names keyed by the canonical hex form
// of a sensor address. Loading a name for an address that has none is
// not an error; it returns the empty string. The store keeps mappings
// indefinitely, including for sensors no longer on the bus.
type NamingStore interface {
	LoadName(ctx context.Context, addr string) (string, error)
	SaveName(ctx context.Context, addr, name string) error
}

// DefaultMaxDevices caps a scan when no limit is configured.
const DefaultMaxDevices = 16

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Driver executes bus discovery and acquisition. Required.
	Driver Driver

	// Store persists display names across restarts. Required.
	Store NamingStore

	// MaxDevices caps how many sensors a scan will manage. Zero means
	// DefaultMaxDevices.
	MaxDevices int

	// Logger receives registry log output. Nil disables logging.
	Logger Logger
}

// Registry translates bus-level, address-keyed data into a stable,
// named, externally consumable sensor list.
//
// All public methods are thread-safe. Two locks split the work: acqMu
// serialises the operations that need exclusive ownership of the
// device table (Rescan and ReadAll), while mu guards the record set
// itself and is only ever held briefly. A naming update or a snapshot
// read therefore interleaves with a slow acquisition cycle instead of
// waiting out its conversion sleep.
type Registry struct {
	driver     Driver
	store      NamingStore
	maxDevices int
	log        Logger

	acqMu sync.Mutex // serialises Rescan and ReadAll

	mu        sync.RWMutex
	sensors   []*ManagedSensor // scan order
	byAddr    map[ds18b20.Address]*ManagedSensor
	truncated bool
}

// NewRegistry creates a registry over the given driver and naming
// store. Call Init to perform the first scan.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("naming store is required")
	}
	if opts.MaxDevices < 0 {
		return nil, fmt.Errorf("max devices must be positive, got %d", opts.MaxDevices)
	}
	maxDevices := opts.MaxDevices
	if maxDevices == 0 {
		maxDevices = DefaultMaxDevices
	}
	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}
	return &Registry{
		driver:     opts.Driver,
		store:      opts.Store,
		maxDevices: maxDevices,
		log:        log,
		byAddr:     make(map[ds18b20.Address]*ManagedSensor),
	}, nil
}

// Init performs the first bus scan and builds the managed sensor set,
// attaching persisted display names by address.
func (r *Registry) Init(ctx context.Context) error {
	if err := r.Rescan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	return nil
}

// Rescan re-runs discovery and replaces the managed set wholesale.
// Records are rebuilt fresh: counters restart and every sensor is
// invalid until its next successful acquisition. Names re-attach by
// address lookup, never by position, so a sensor keeps its identity
// even when the discovery order shuffles around it. A sensor absent
// from the result loses its record; its persisted name stays in the
// store and re-attaches if the sensor returns.
//
// Rescan and ReadAll are mutually exclusive, so a rescan never swaps
// the table out from under a cycle in flight.
func (r *Registry) Rescan(ctx context.Context) error {
	r.acqMu.Lock()
	defer r.acqMu.Unlock()

	addrs, truncated, err := r.driver.Scan(r.maxDevices)
	if err != nil {
		return fmt.Errorf("scanning bus: %w", err)
	}
	if truncated {
		r.log.Warn("more sensors on the bus than the configured cap", "max_devices", r.maxDevices)
	}

	// Names for surviving addresses come from the in-memory record;
	// only new addresses hit the store. The two agree because saves go
	// to the store first.
	r.mu.RLock()
	prevNames := make(map[ds18b20.Address]string, len(r.byAddr))
	for addr, s := range r.byAddr {
		prevNames[addr] = s.DisplayName
	}
	r.mu.RUnlock()

	sensors := make([]*ManagedSensor, 0, len(addrs))
	byAddr := make(map[ds18b20.Address]*ManagedSensor, len(addrs))
	for _, addr := range addrs {
		if _, dup := byAddr[addr]; dup {
			continue
		}
		s := &ManagedSensor{
			Reading:    ds18b20.Reading{Addr: addr},
			AddressHex: addr.String(),
		}
		if name, ok := prevNames[addr]; ok {
			s.DisplayName = name
		} else {
			name, err := r.store.LoadName(ctx, s.AddressHex)
			if err != nil {
				r.log.Warn("could not load display name", "address", s.AddressHex, "error", err)
			} else {
				s.DisplayName = name
			}
		}
		sensors = append(sensors, s)
		byAddr[addr] = s
	}

	r.mu.Lock()
	r.sensors = sensors
	r.byAddr = byAddr
	r.truncated = truncated
	r.mu.Unlock()

	r.log.Info("sensor set rebuilt", "count", len(sensors), "truncated", truncated)
	return nil
}

// ReadAll runs one acquisition cycle across the managed set and folds
// the results back into the records, matched by address rather than
// position. Nothing is raised to the caller: per-device failures are
// already folded into the records by the driver, and a bus-wide
// failure is logged here on the same reasoning, since the next cycle
// retries anyway.
//
// The driver works on scratch copies of the records, so the record
// lock is held only to snapshot and to fold, never across the
// conversion wait.
func (r *Registry) ReadAll() {
	r.acqMu.Lock()
	defer r.acqMu.Unlock()

	r.mu.RLock()
	scratch := make([]*ds18b20.Reading, len(r.sensors))
	for i, s := range r.sensors {
		rd := s.Reading
		scratch[i] = &rd
	}
	r.mu.RUnlock()

	if len(scratch) == 0 {
		return
	}

	if err := r.driver.ReadAll(scratch); err != nil {
		r.log.Warn("bus-wide acquisition failure", "error", err)
	}

	valid := 0
	r.mu.Lock()
	for _, rd := range scratch {
		if s, ok := r.byAddr[rd.Addr]; ok {
			s.Reading = *rd
		}
		if rd.Valid {
			valid++
		}
	}
	r.mu.Unlock()

	r.log.Debug("acquisition cycle complete", "sensors", len(scratch), "valid", valid)
}

// SetDisplayName names a sensor, or clears the name when given the
// empty string. The name goes to the store first; the in-memory record
// only changes once the store has accepted it. Unknown addresses are
// rejected: naming follows identity, and identity comes only from
// discovery.
func (r *Registry) SetDisplayName(ctx context.Context, addr ds18b20.Address, name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %d characters, limit is %d", ErrInvalidName, len(name), maxNameLength)
	}
	for _, c := range name {
		if unicode.IsControl(c) {
			return fmt.Errorf("%w: control characters are not allowed", ErrInvalidName)
		}
	}

	r.mu.RLock()
	_, known := r.byAddr[addr]
	r.mu.RUnlock()
	if !known {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, addr)
	}

	if err := r.store.SaveName(ctx, addr.String(), name); err != nil {
		return fmt.Errorf("persisting display name: %w", err)
	}

	r.mu.Lock()
	if s, ok := r.byAddr[addr]; ok {
		s.DisplayName = name
	}
	r.mu.Unlock()

	r.log.Info("display name updated", "address", addr.String(), "name", name)
	return nil
}

// SetDisplayNameHex names a sensor by the canonical hex form of its
// address, for callers that work at the string boundary. A string that
// does not parse cannot refer to a managed sensor, so it reports
// ErrSensorNotFound like any other unknown address.
func (r *Registry) SetDisplayNameHex(ctx context.Context, addrHex, name string) error {
	addr, err := ds18b20.ParseAddress(addrHex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSensorNotFound, err)
	}
	return r.SetDisplayName(ctx, addr, name)
}

// Sensors returns a deep-copied snapshot of every managed sensor in
// scan order. Callers can hold or modify the copies freely.
func (r *Registry) Sensors() []*ManagedSensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ManagedSensor, len(r.sensors))
	for i, s := range r.sensors {
		out[i] = s.DeepCopy()
	}
	return out
}

// Sensor returns a deep copy of one sensor by address.
// Returns ErrSensorNotFound if the address is not in the managed set.
func (r *Registry) Sensor(addr ds18b20.Address) (*ManagedSensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSensorNotFound, addr)
	}
	return s.DeepCopy(), nil
}

// DisplayName returns the name for an address, falling back to the
// address's own hex form when the sensor is unnamed or unknown.
func (r *Registry) DisplayName(addr ds18b20.Address) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byAddr[addr]; ok && s.DisplayName != "" {
		return s.DisplayName
	}
	return addr.String()
}

// Count returns the number of managed sensors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sensors)
}

// Truncated reports whether the last scan found more sensors than the
// configured cap could hold.
func (r *Registry) Truncated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.truncated
}

// ResetErrorStats zeroes the per-device counters of every managed
// sensor. The driver's aggregate counters are separate and reset
// independently. A reset landing while a cycle is in flight is folded
// over by that cycle's results.
func (r *Registry) ResetErrorStats() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sensors {
		s.TotalReads = 0
		s.FailedReads = 0
	}
	r.log.Info("per-device error stats reset", "sensors", len(r.sensors))
}

// Stats returns the driver's aggregate counters across all devices
// and all cycles.
func (r *Registry) Stats() ds18b20.Stats {
	return r.driver.Stats()
}

// ResetStats zeroes the driver's aggregate counters. Per-device
// counters are untouched; those reset through ResetErrorStats.
func (r *Registry) ResetStats() {
	r.driver.ResetStats()
}

// ResetSensorErrorStats zeroes the counters of a single sensor.
// Returns ErrSensorNotFound if the address is not in the managed set.
func (r *Registry) ResetSensorErrorStats(addr ds18b20.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byAddr[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, addr)
	}
	s.TotalReads = 0
	s.FailedReads = 0
	return nil
}
