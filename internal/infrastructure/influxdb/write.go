package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature records one reading in the temperature measurement,
// tagged by address and, when set, display name. Non-blocking; the
// point is stamped now, so call it at acquisition time rather than
// from a delayed queue.
func (c *Client) WriteTemperature(addr string, name string, celsius float64) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"address": addr,
	}
	if name != "" {
		tags["name"] = name
	}

	point := write.NewPoint(
		"temperature",
		tags,
		map[string]interface{}{
			"celsius": celsius,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBusStats records aggregate acquisition counters for trending bus
// health. A rising failure count usually means wiring or pull-up
// trouble long before sensors drop off the bus entirely.
func (c *Client) WriteBusStats(sensors int, totalReads uint64, failedReads uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bus_stats",
		nil,
		map[string]interface{}{
			"sensors":      sensors,
			"total_reads":  int64(totalReads),  // #nosec G115 -- counter wrap takes centuries
			"failed_reads": int64(failedReads), // #nosec G115
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
