package sensor

import "github.com/nerrad567/gray-logic-onewire/internal/ds18b20"

// maxNameLength bounds operator-assigned display names.
const maxNameLength = 64

// ManagedSensor couples one bus device's acquisition record with its
// operator-facing identity. The embedded Reading is mutated by the
// acquisition path only; DisplayName is mutated by SetDisplayName
// only.
type ManagedSensor struct {
	ds18b20.Reading

	// AddressHex is the canonical 16-character uppercase hex form of
	// the address, precomputed at scan time. It is the sole identity
	// format at the boundary; consumers use it without reformatting
	// the raw bytes on every cycle.
	AddressHex string `json:"address"`

	// DisplayName is the operator-assigned name, empty when unnamed.
	// It follows the address across rescans, never the scan position.
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the display name, falling back to the address's hex
// form for sensors that have not been named yet.
func (s *ManagedSensor) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Addr.String()
}

// DeepCopy creates an independent copy of the sensor. Every field is a
// value type, so a plain copy suffices; the method exists to keep
// cache isolation explicit at call sites.
func (s *ManagedSensor) DeepCopy() *ManagedSensor {
	if s == nil {
		return nil
	}
	cpy := *s
	return &cpy
}
