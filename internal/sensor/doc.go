// Package sensor provides the managed sensor registry: the layer that
// turns bus-level, address-keyed readings into a stable, named sensor
// list for publishers and operators.
//
// A sensor's identity is its 64-bit ROM address and nothing else. Scan
// positions shuffle whenever devices join or leave the bus, so every
// lookup, fold and name attachment in this package goes through the
// address. Display names live in an injected NamingStore and follow
// the address across rescans, rewiring and restarts.
//
// # Concurrency
//
// Two threads of control contend for the registry: a periodic worker
// calling ReadAll, and on-demand requests calling Rescan or
// SetDisplayName. Rescan and ReadAll are mutually exclusive via a
// dedicated acquisition lock. The record set has its own short-held
// lock, so naming updates and snapshot reads slip in while a cycle
// sits out its conversion wait.
//
// # Usage
//
//	registry, err := sensor.NewRegistry(sensor.RegistryOptions{
//	    Driver:     drv,
//	    Store:      store,
//	    MaxDevices: cfg.Bus.MaxDevices,
//	    Logger:     log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := registry.Init(ctx); err != nil {
//	    return err
//	}
//
//	registry.ReadAll()
//	for _, s := range registry.Sensors() {
//	    fmt.Printf("%s: %.2f°C valid=%v\n", s.Name(), s.Temperature, s.Valid)
//	}
package sensor
