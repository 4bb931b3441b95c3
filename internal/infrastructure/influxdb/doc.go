// Package influxdb stores temperature history in InfluxDB v2.
//
// The MQTT state topics carry only the latest value per sensor; this
// package carries the history behind them. Two measurements are
// written: "temperature" (one point per sensor per acquisition cycle,
// tagged by address and display name) and "bus_stats" (cumulative
// read/failure counters for trending bus health).
//
// Writes go through the client library's non-blocking batched API, so
// a slow or absent server never stalls acquisition. Batch size and
// flush interval come from config.yaml; at typical poll rates one
// batch spans several full read cycles. Because writes are
// fire-and-forget, failures surface only through the SetOnError
// callback.
//
// History is optional. When config disables it, Connect returns
// ErrDisabled and the caller runs without a history client; nothing
// else in the service changes.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	} else if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { log.Warn("history write", "error", err) })
//	client.WriteTemperature("28FF4A2B00000031", "Boiler Flow", 54.3)
package influxdb
