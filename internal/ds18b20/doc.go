// Package ds18b20 provides the 1-Wire bus protocol driver for
// DS18B20-class temperature sensors.
//
// The driver owns exclusive access to one shared bus and executes the
// discovery and acquisition protocol on it: ROM search enumeration,
// broadcast temperature conversion, per-device scratchpad read-back
// with CRC validation, and resolution configuration.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                          Driver                              │
//	│                                                              │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────┐  │
//	│  │     Scan       │   │    ReadAll     │   │ SetResolution│  │
//	│  │  ROM search    │   │ skip-ROM conv. │   │ config reg + │  │
//	│  │  family filter │   │ tiered wait    │   │ EEPROM copy  │  │
//	│  │  CRC + cap     │   │ per-dev read   │   │              │  │
//	│  └────────────────┘   └────────────────┘   └──────────────┘  │
//	│            │                  │                   │          │
//	│            └──────────────────┼───────────────────┘          │
//	│                               ▼                              │
//	│                    single mutex, one bus                     │
//	└───────────────────────────────┼──────────────────────────────┘
//	                                ▼
//	                     periph.io onewire.Bus
//	                   (kernel w1 master on a Pi)
//
// # Acquisition
//
// ReadAll collapses the conversion latency for n sensors from n waits
// to one: a single skip-ROM broadcast starts every conversion at once,
// the driver blocks for the slowest recorded resolution tier (94ms at
// 9 bits up to 752ms at 12 bits), then each scratchpad is read back
// individually. A sensor failing its read-back is marked invalid and
// counted; the cycle always continues to the rest.
//
// # Identity
//
// Sensors are identified by their 64-bit ROM address, nothing else.
// Scan order is an artefact of the search algorithm and changes when
// devices come and go; no caller should store positions.
//
// # Usage
//
//	bus, err := ds18b20.OpenBus("")
//	if err != nil {
//	    return err
//	}
//	defer bus.Close()
//
//	drv, err := ds18b20.NewDriver(ds18b20.DriverOptions{Bus: bus})
//	if err != nil {
//	    return err
//	}
//
//	addrs, truncated, err := drv.Scan(16)
//	if err != nil {
//	    return err
//	}
//
//	readings := make([]*ds18b20.Reading, len(addrs))
//	for i, addr := range addrs {
//	    readings[i] = &ds18b20.Reading{Addr: addr}
//	}
//	if err := drv.ReadAll(readings); err != nil {
//	    log.Warn("bus-wide failure", "error", err)
//	}
//
// # Thread Safety
//
// All Driver methods are safe for concurrent use. A single mutex
// serialises bus transactions; aggregate stats have their own lock so
// they can be queried while a cycle is in flight.
package ds18b20
