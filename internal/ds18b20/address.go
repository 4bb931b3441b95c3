package ds18b20

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/onewire"
)

// Family codes for supported sensor types.
const (
	// FamilyDS18B20 is the family code for the DS18B20 programmable
	// resolution thermometer. Scan only returns devices of this family.
	FamilyDS18B20 = 0x28
)

// addressHexLength is the length of an address in boundary string form:
// 8 ROM bytes as 2 hex characters each.
const addressHexLength = 16

// Address is a 64-bit 1-Wire ROM code in bus byte order: family code
// first, then the 48-bit serial, then the ROM CRC.
//
// Address is the sole identity of a sensor. It is stable across
// rescans, power cycles and wiring changes; the position of a sensor
// in a scan result is not.
type Address [8]byte

// AddressFromROM converts a periph.io bus address (a little-endian
// uint64 with the family code in the low byte) into bus byte order.
func AddressFromROM(rom onewire.Address) Address {
	var a Address
	binary.LittleEndian.PutUint64(a[:], uint64(rom))
	return a
}

// ParseAddress parses the canonical 16 character hex string form
// produced by String. Case is ignored. The ROM CRC is not verified:
// parsed addresses come from config files and persisted name mappings,
// which may reference devices no longer on the bus.
func ParseAddress(s string) (Address, error) {
	if len(s) != addressHexLength {
		return Address{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidAddress, addressHexLength, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// String returns the address as 16 uppercase hex characters, family
// code first. This is the canonical boundary form used in topics,
// persisted name mappings and log output.
func (a Address) String() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// ROM returns the periph.io representation of the address for
// device-addressed bus transactions.
func (a Address) ROM() onewire.Address {
	return onewire.Address(binary.LittleEndian.Uint64(a[:]))
}

// MarshalText implements encoding.TextMarshaler using the canonical
// hex form, so addresses serialise as strings in JSON payloads.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Family returns the device family code (the first ROM byte).
func (a Address) Family() byte {
	return a[0]
}

// ValidCRC reports whether the last ROM byte matches the CRC of the
// first seven. Addresses straight off the wire must pass this before
// entering the device table.
func (a Address) ValidCRC() bool {
	return onewire.CheckCRC(a[:])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}
