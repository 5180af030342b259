package mifare

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

func TestDecodeAccessBits(t *testing.T) {
	tests := []struct {
		name string
		raw  [3]byte
		want AccessConditions
	}{
		{
			name: "Transport configuration",
			raw:  TransportAccessBits,
			want: AccessConditions{0b000, 0b000, 0b000, 0b001},
		},
		{
			name: "Key B write configuration",
			raw:  [3]byte{0x08, 0x77, 0x8F},
			want: AccessConditions{0b110, 0b110, 0b110, 0b011},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAccessBits(tt.raw)
			if err != nil {
				t.Fatalf("DecodeAccessBits failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if enc := got.Encode(); enc != tt.raw {
				t.Errorf("Encode() = %X, want %X", enc, tt.raw)
			}
		})
	}
}

func TestDecodeAccessBits_Corrupt(t *testing.T) {
	for _, raw := range [][3]byte{{0xFF, 0x07, 0x81}, {0x00, 0x00, 0x00}, {0xFF, 0xFF, 0xFF}} {
		if _, err := DecodeAccessBits(raw); !errors.Is(err, ErrAccessBitsCorrupt) {
			t.Errorf("%X: err = %v", raw, err)
		}
	}
}

func TestAccessConditions_EncodeRoundTrip(t *testing.T) {
	ac := AccessConditions{
		NewAccessBits(true, false, false),
		NewAccessBits(false, true, false),
		NewAccessBits(true, true, true),
		NewAccessBits(false, true, true),
	}
	got, err := DecodeAccessBits(ac.Encode())
	if err != nil {
		t.Fatalf("encoded conditions rejected: %v", err)
	}
	if got != ac {
		t.Errorf("got %v, want %v", got, ac)
	}
}

func TestAccessBits_Accessors(t *testing.T) {
	a := NewAccessBits(true, false, true)
	if !a.C1() || a.C2() || !a.C3() {
		t.Errorf("C1/C2/C3 = %v/%v/%v", a.C1(), a.C2(), a.C3())
	}
	if a.String() != "101" {
		t.Errorf("String() = %q", a.String())
	}
	if !strings.HasPrefix(a.DataPermissions(), "read B") {
		t.Errorf("DataPermissions() = %q", a.DataPermissions())
	}
}

func TestAccessConditions_Group(t *testing.T) {
	ac := AccessConditions{0, 1, 2, 3}

	tests := []struct {
		block, size int
		want        AccessBits
	}{
		{0, 4, 0},
		{2, 4, 2},
		{3, 4, 3},
		{4, 16, 0},
		{5, 16, 1},
		{14, 16, 2},
		{15, 16, 3},
	}
	for _, tt := range tests {
		if got := ac.Group(tt.block, tt.size); got != tt.want {
			t.Errorf("Group(%d, %d) = %d, want %d", tt.block, tt.size, got, tt.want)
		}
	}
}

func TestTrailer(t *testing.T) {
	raw := tlv.Hex("000000000000 FF0780 69 FFFFFFFFFFFF")
	d, err := NewBlockData(raw)
	if err != nil {
		t.Fatal(err)
	}

	trailer := SplitTrailer(d)
	if trailer.Access != TransportAccessBits || trailer.GPB != TransportGPB || trailer.KeyB != DefaultKey {
		t.Errorf("unexpected trailer %+v", trailer)
	}
	if trailer.Block() != d {
		t.Errorf("Block() = %s, want %s", trailer.Block(), d)
	}

	ac, err := trailer.Conditions()
	if err != nil {
		t.Fatal(err)
	}
	report := ac.Describe()
	if !strings.Contains(report, "Data group 0: [000] read AB, write AB") {
		t.Errorf("report missing data group:\n%s", report)
	}
	if !strings.Contains(report, "Trailer:      [001]") {
		t.Errorf("report missing trailer:\n%s", report)
	}
}
