package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-onewire/internal/ds18b20"
)

// settingsCommand is the payload of the settings command topic.
// Fields are pointers so an absent field leaves that setting alone.
// Intervals are in seconds, resolution in bits.
type settingsCommand struct {
	ReadInterval    *int `json:"read_interval,omitempty"`
	PublishInterval *int `json:"publish_interval,omitempty"`
	Resolution      *int `json:"resolution,omitempty"`
}

// handleRescan re-runs bus discovery, then re-announces discovery and
// republishes state so consumers see the new sensor set immediately.
// The payload is ignored.
func (p *Publisher) handleRescan(_ string, _ []byte) error {
	ctx, cancel := context.WithTimeout(p.ctx, rescanTimeout)
	defer cancel()

	if err := p.source.Rescan(ctx); err != nil {
		return fmt.Errorf("rescan command: %w", err)
	}

	p.Announce()
	p.PublishAll()

	p.log.Info("rescan command complete", "sensors", p.source.Count())
	return nil
}

// handleResolution applies a new conversion resolution to every sensor
// and persists it. The payload is the resolution in bits, "9" to "12".
func (p *Publisher) handleResolution(_ string, payload []byte) error {
	bits, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return fmt.Errorf("resolution command: parsing %q: %w", payload, err)
	}

	if err := p.applyResolution(bits); err != nil {
		return fmt.Errorf("resolution command: %w", err)
	}

	p.PublishAll()
	return nil
}

// handleName assigns a display name to the sensor addressed by the
// topic. An empty payload clears the name. Discovery is re-announced
// so Home Assistant picks the new entity name up.
func (p *Publisher) handleName(topic string, payload []byte) error {
	addrHex, ok := p.topics.ParseCommandName(topic)
	if !ok {
		return fmt.Errorf("name command: no address in topic %q", topic)
	}

	addr, err := ds18b20.ParseAddress(addrHex)
	if err != nil {
		return fmt.Errorf("name command: %w", err)
	}

	name := strings.TrimSpace(string(payload))

	ctx, cancel := context.WithTimeout(p.ctx, commandTimeout)
	defer cancel()

	if err := p.source.SetDisplayName(ctx, addr, name); err != nil {
		return fmt.Errorf("name command: %w", err)
	}

	p.Announce()
	p.PublishAll()

	p.log.Info("name command complete", "address", addrHex, "name", name)
	return nil
}

// handleSettings adjusts the runtime settings carried in a JSON
// payload. Absent fields are untouched; present fields are applied and
// persisted one by one, so an error on a later field leaves earlier
// ones in effect. Retrying the same payload is harmless.
func (p *Publisher) handleSettings(_ string, payload []byte) error {
	var cmd settingsCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("settings command: parsing payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(p.ctx, commandTimeout)
	defer cancel()

	if cmd.ReadInterval != nil {
		interval := time.Duration(*cmd.ReadInterval) * time.Second
		if err := p.store.SaveReadInterval(ctx, interval); err != nil {
			return fmt.Errorf("settings command: %w", err)
		}
		p.applyReadInterval(interval)
		p.log.Info("read interval updated", "interval", interval)
	}

	if cmd.PublishInterval != nil {
		interval := time.Duration(*cmd.PublishInterval) * time.Second
		if err := p.store.SavePublishInterval(ctx, interval); err != nil {
			return fmt.Errorf("settings command: %w", err)
		}
		p.applyPublishInterval(interval)
		p.log.Info("publish interval updated", "interval", interval)
	}

	if cmd.Resolution != nil {
		if err := p.applyResolution(*cmd.Resolution); err != nil {
			return fmt.Errorf("settings command: %w", err)
		}
	}

	return nil
}

// applyResolution pushes a resolution change to the bus and persists
// it. The new value reaches the store only after every sensor has
// accepted it.
func (p *Publisher) applyResolution(bits int) error {
	if err := p.bus.SetResolution(bits); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(p.ctx, commandTimeout)
	defer cancel()

	if err := p.store.SaveResolution(ctx, bits); err != nil {
		return fmt.Errorf("persisting resolution: %w", err)
	}

	p.log.Info("resolution updated", "bits", bits)
	return nil
}

// applyReadInterval forwards a cadence change to the poller, if wired.
// Unwired, the persisted value still takes effect on the next start.
func (p *Publisher) applyReadInterval(interval time.Duration) {
	p.intervalsMu.RLock()
	ctl := p.intervals
	p.intervalsMu.RUnlock()

	if ctl != nil {
		ctl.SetReadInterval(interval)
	}
}

// applyPublishInterval forwards a cadence change to the poller, if wired.
func (p *Publisher) applyPublishInterval(interval time.Duration) {
	p.intervalsMu.RLock()
	ctl := p.intervals
	p.intervalsMu.RUnlock()

	if ctl != nil {
		ctl.SetPublishInterval(interval)
	}
}
