package ds18b20

import (
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "valid uppercase",
			input: "28FF64D0E4160529",
			want:  "28FF64D0E4160529",
		},
		{
			name:  "lowercase normalised",
			input: "28ff64d0e4160529",
			want:  "28FF64D0E4160529",
		},
		{
			name:  "digits only",
			input: "2801000000000001",
			want:  "2801000000000001",
		},
		{
			name:    "too short",
			input:   "28FF64",
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "too long",
			input:   "28FF64D0E41605290",
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "non-hex characters",
			input:   "28GG64D0E4160529",
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseAddress(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) error = %v, want nil", tt.input, err)
			}
			if got := addr.String(); got != tt.want {
				t.Errorf("ParseAddress(%q).String() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAddressString(t *testing.T) {
	addr := Address{0x28, 0xff, 0x64, 0xd0, 0xe4, 0x16, 0x05, 0x29}
	if got := addr.String(); got != "28FF64D0E4160529" {
		t.Errorf("String() = %q, want %q", got, "28FF64D0E4160529")
	}
	if got := addr.Family(); got != FamilyDS18B20 {
		t.Errorf("Family() = %#02x, want %#02x", got, FamilyDS18B20)
	}
}

func TestAddressROMRoundTrip(t *testing.T) {
	rom := testROM(FamilyDS18B20, 0x0000a1b2c3d4)
	addr := AddressFromROM(rom)

	if got := addr.Family(); got != FamilyDS18B20 {
		t.Errorf("Family() = %#02x, want %#02x", got, FamilyDS18B20)
	}
	if got := addr.ROM(); got != rom {
		t.Errorf("ROM() = %#016x, want %#016x", uint64(got), uint64(rom))
	}

	parsed, err := ParseAddress(addr.String())
	if err != nil {
		t.Fatalf("ParseAddress(%q) error = %v", addr.String(), err)
	}
	if parsed != addr {
		t.Errorf("round trip = %v, want %v", parsed, addr)
	}
}

func TestAddressValidCRC(t *testing.T) {
	addr := AddressFromROM(testROM(FamilyDS18B20, 0x112233445566))
	if !addr.ValidCRC() {
		t.Error("ValidCRC() = false for a correctly built ROM")
	}

	corrupt := addr
	corrupt[3] ^= 0x01
	if corrupt.ValidCRC() {
		t.Error("ValidCRC() = true for a corrupted ROM")
	}
}

func TestAddressTextMarshalling(t *testing.T) {
	addr := Address{0x28, 0x01, 0, 0, 0, 0, 0, 0x29}

	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "2801000000000029" {
		t.Errorf("MarshalText() = %q, want %q", text, "2801000000000029")
	}

	var parsed Address
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if parsed != addr {
		t.Errorf("UnmarshalText() = %v, want %v", parsed, addr)
	}

	if err := parsed.UnmarshalText([]byte("nope")); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("UnmarshalText(nope) error = %v, want ErrInvalidAddress", err)
	}
}

func TestAddressIsZero(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Error("IsZero() = false for the zero address")
	}
	if (Address{0x28}).IsZero() {
		t.Error("IsZero() = true for a non-zero address")
	}
}
