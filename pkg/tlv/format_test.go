package tlv

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format string
		want   string
	}{
		{"Plain", []byte{0xA0, 0x00}, "", "A000"},
		{"ASCII", []byte("AB\x00"), "ascii", `414200 ("AB.")`},
		{"Int", []byte{0x01, 0x00}, "int", "0100 (Dec: 256)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.data, tt.format); got != tt.want {
				t.Errorf("FormatBytes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMakeSafeASCII(t *testing.T) {
	if got := MakeSafeASCII([]byte{'h', 'i', 0x00, 0x7F, '~'}); got != "hi..~" {
		t.Errorf("MakeSafeASCII() = %q", got)
	}
	if got := MakeSafeASCII([]byte{0xC3, 0xA9, 'A'}); got != "..A" {
		t.Errorf("MakeSafeASCII() on UTF-8 = %q", got)
	}
}
