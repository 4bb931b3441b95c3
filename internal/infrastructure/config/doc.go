// Package config loads and validates Gray Logic 1-Wire configuration.
//
// Configuration comes from a YAML file, loaded once at startup and
// validated before anything else runs. A handful of GLONEWIRE_*
// environment variables override file values afterwards; secrets (the
// MQTT password, the InfluxDB token) belong there rather than in the
// file, and the file itself should sit at 0600.
//
// Note that the poll and publish intervals and the conversion
// resolution in the file are only initial values. Once the service has
// run, operator adjustments persisted in the settings store win over
// the file on the next start.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bus.MaxDevices)
package config
