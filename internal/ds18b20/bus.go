package ds18b20

import (
	"fmt"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewirereg"
	"periph.io/x/host/v3"
)

// OpenBus initialises the host peripheral drivers and claims the named
// 1-Wire bus. An empty name selects the first registered bus, which on
// a Raspberry Pi is the kernel w1 master configured through a device
// tree overlay.
//
// Failure here is fatal for the subsystem: no driver operation is
// possible without a bus. Close the returned bus when done.
func OpenBus(name string) (onewire.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: initialising host drivers: %w", ErrBusInit, err)
	}
	bus, err := onewirereg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: opening bus %q: %w", ErrBusInit, name, err)
	}
	return bus, nil
}
