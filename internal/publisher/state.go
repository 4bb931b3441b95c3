package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-onewire/internal/sensor"
)

// statePayload is the per-sensor state document. Temperature is a
// pointer so a sensor without a valid reading publishes null, never a
// stale number.
type statePayload struct {
	Temperature *float64 `json:"temperature"`
	Valid       bool     `json:"valid"`
	Name        string   `json:"name,omitempty"`
	LastRead    string   `json:"last_read,omitempty"`
	TotalReads  uint64   `json:"total_reads"`
	FailedReads uint64   `json:"failed_reads"`
}

// busStatsPayload is the aggregate bus statistics document.
type busStatsPayload struct {
	Sensors     int    `json:"sensors"`
	Valid       int    `json:"valid"`
	TotalReads  uint64 `json:"total_reads"`
	FailedReads uint64 `json:"failed_reads"`
	Resolution  int    `json:"resolution"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// buildState converts a managed sensor into its state document.
func buildState(s *sensor.ManagedSensor) statePayload {
	payload := statePayload{
		Valid:       s.Valid,
		Name:        s.DisplayName,
		TotalReads:  s.TotalReads,
		FailedReads: s.FailedReads,
	}
	if s.Valid {
		t := s.Temperature
		payload.Temperature = &t
	}
	if !s.LastRead.IsZero() {
		payload.LastRead = s.LastRead.UTC().Format(time.RFC3339)
	}
	return payload
}

// publishSensorState publishes one sensor's retained state document.
func (p *Publisher) publishSensorState(s *sensor.ManagedSensor) error {
	payload, err := json.Marshal(buildState(s))
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return p.client.Publish(p.topics.SensorState(s.AddressHex), payload, p.qos, true)
}

// publishBusStats publishes the retained aggregate statistics document.
func (p *Publisher) publishBusStats(sensors []*sensor.ManagedSensor) error {
	valid := 0
	for _, s := range sensors {
		if s.Valid {
			valid++
		}
	}

	stats := p.bus.Stats()
	payload, err := json.Marshal(busStatsPayload{
		Sensors:     len(sensors),
		Valid:       valid,
		TotalReads:  stats.TotalReads,
		FailedReads: stats.FailedReads,
		Resolution:  int(p.bus.Resolution()),
		Truncated:   p.source.Truncated(),
	})
	if err != nil {
		return fmt.Errorf("marshaling bus stats: %w", err)
	}
	return p.client.Publish(p.topics.BusStats(), payload, p.qos, true)
}
