package tlv

import (
	"bytes"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		want      []byte
		wantPanic bool
	}{
		{
			name:   "Simple Join",
			inputs: []string{"FF", "CA"},
			want:   []byte{0xFF, 0xCA},
		},
		{
			name:   "With Spaces",
			inputs: []string{"FF 86", " 00 00 "},
			want:   []byte{0xFF, 0x86, 0x00, 0x00},
		},
		{
			name:   "Mixed Case",
			inputs: []string{"ca", "FE"},
			want:   []byte{0xCA, 0xFE},
		},
		{
			name:      "Invalid Hex",
			inputs:    []string{"ZZ"},
			wantPanic: true,
		},
		{
			name:      "Odd Length",
			inputs:    []string{"123"},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("Hex() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()

			got := Hex(tt.inputs...)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Hex() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestParseHex(t *testing.T) {
	got, err := ParseHex("ff ff\tff FFFFFF")
	if err != nil {
		t.Fatalf("ParseHex failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("ParseHex() = %X", got)
	}

	if _, err := ParseHex("F"); err == nil {
		t.Error("expected error for odd length input")
	}
}

func TestSpaced(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte{0x90, 0x00}, "90 00"},
		{[]byte{0xFF, 0xCA, 0x00, 0x00, 0x00}, "FF CA 00 00 00"},
	}

	for _, tt := range tests {
		if got := Spaced(tt.in); got != tt.want {
			t.Errorf("Spaced(%X) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
