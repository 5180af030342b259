package reader

import (
	"errors"
	"testing"
)

func TestSelect(t *testing.T) {
	readers := []string{
		"ACS ACR122U PICC Interface 00 00",
		"HID Global OMNIKEY 5022 Smart Card Reader 01 00",
	}

	tests := []struct {
		name    string
		sel     Selector
		want    string
		wantErr bool
	}{
		{"Default index", Selector{}, readers[0], false},
		{"Second index", Selector{Index: 1}, readers[1], false},
		{"Name substring", Selector{Name: "OMNIKEY"}, readers[1], false},
		{"Name wins over index", Selector{Index: 1, Name: "ACR122"}, readers[0], false},
		{"Index out of range", Selector{Index: 2}, "", true},
		{"Negative index", Selector{Index: -1}, "", true},
		{"Unknown name", Selector{Name: "SCL3711"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(readers, tt.sel)
			if tt.wantErr {
				if !errors.Is(err, ErrNoReader) {
					t.Errorf("err = %v, want ErrNoReader", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := Select(nil, Selector{}); !errors.Is(err, ErrNoReader) {
		t.Errorf("no readers: err = %v", err)
	}
}

func TestReader_WithoutCard(t *testing.T) {
	r := &Reader{Name: "test"}

	if _, err := r.Transmit([]byte{0xFF, 0xCA, 0x00, 0x00, 0x00}); !errors.Is(err, ErrNoCard) {
		t.Errorf("Transmit err = %v", err)
	}
	if _, err := r.ATR(); !errors.Is(err, ErrNoCard) {
		t.Errorf("ATR err = %v", err)
	}
	if err := r.Disconnect(); err != nil {
		t.Errorf("Disconnect err = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close err = %v", err)
	}
}
