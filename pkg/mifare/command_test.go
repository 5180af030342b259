package mifare

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

func encode(t *testing.T, cmd *iso7816.CommandAPDU) []byte {
	t.Helper()
	raw, err := cmd.Bytes()
	if err != nil {
		t.Fatalf("encoding failed: %v", err)
	}
	return raw
}

func TestCommandBuilder_Frames(t *testing.T) {
	b := NewCommandBuilder(Geometry1K)
	data := BlockData{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}

	mustCmd := func(cmd *iso7816.CommandAPDU, err error) *iso7816.CommandAPDU {
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		return cmd
	}

	tests := []struct {
		name     string
		cmd      *iso7816.CommandAPDU
		expected []byte
	}{
		{"GET UID", b.GetUID(), tlv.Hex("FF CA 00 00 00")},
		{"LOAD KEYS default", b.LoadKey(DefaultKey), tlv.Hex("FF 82 00 00 06 FFFFFFFFFFFF")},
		{"LOAD KEYS custom", b.LoadKey(Key{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}), tlv.Hex("FF 82 00 00 06 A0A1A2A3A4A5")},
		{"AUTHENTICATE sector 1 block 0 key A", mustCmd(b.Authenticate(SectorBlock(1, 0), KeyA)), tlv.Hex("FF 86 00 00 05 01 00 04 60 00")},
		{"AUTHENTICATE block 63 key B", mustCmd(b.Authenticate(AbsoluteBlock(63), KeyB)), tlv.Hex("FF 86 00 00 05 01 00 3F 61 00")},
		{"READ BINARY sector 1 block 2", mustCmd(b.ReadBlock(SectorBlock(1, 2))), tlv.Hex("FF B0 00 06 10")},
		{"UPDATE BINARY block 5", mustCmd(b.WriteBlock(AbsoluteBlock(5), data)), tlv.Hex("FF D6 00 05 10 000102030405060708090A0B0C0D0E0F")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encode(t, tt.cmd)
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch\nExpected: %s\nGot:      %s", tlv.Spaced(tt.expected), tlv.Spaced(got))
			}
		})
	}
}

func TestCommandBuilder_LoadKeyOffset(t *testing.T) {
	key := Key{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	raw := encode(t, NewCommandBuilder(Geometry1K).LoadKey(key))

	if len(raw) != 11 {
		t.Fatalf("length = %d, want 11", len(raw))
	}
	if !bytes.Equal(raw[5:11], key[:]) {
		t.Errorf("key bytes at offset 5 = %X", raw[5:11])
	}
}

func TestCommandBuilder_AddressCanonicalization(t *testing.T) {
	b := NewCommandBuilder(Geometry1K)

	bySector, err := b.Authenticate(SectorBlock(1, 0), KeyA)
	if err != nil {
		t.Fatal(err)
	}
	byAbsolute, err := b.Authenticate(AbsoluteBlock(4), KeyA)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(encode(t, bySector), encode(t, byAbsolute)) {
		t.Errorf("sector 1 block 0 and block 4 encode differently")
	}

	readSector, _ := b.ReadBlock(SectorBlock(15, 3))
	readAbsolute, _ := b.ReadBlock(AbsoluteBlock(63))
	if !bytes.Equal(encode(t, readSector), encode(t, readAbsolute)) {
		t.Errorf("sector 15 block 3 and block 63 encode differently")
	}
}

func TestCommandBuilder_Deterministic(t *testing.T) {
	b := NewCommandBuilder(Geometry4K)
	first, _ := b.ReadBlock(SectorBlock(33, 2))
	second, _ := b.ReadBlock(SectorBlock(33, 2))
	if !bytes.Equal(encode(t, first), encode(t, second)) {
		t.Errorf("identical inputs built different commands")
	}
}

func TestCommandBuilder_4KLargeSectors(t *testing.T) {
	b := NewCommandBuilder(Geometry4K)

	tests := []struct {
		addr  Address
		block byte
	}{
		{SectorBlock(31, 3), 127},
		{SectorBlock(32, 0), 128},
		{SectorBlock(32, 15), 143},
		{SectorBlock(39, 15), 255},
		{AbsoluteBlock(200), 200},
	}
	for _, tt := range tests {
		t.Run(tt.addr.String(), func(t *testing.T) {
			cmd, err := b.ReadBlock(tt.addr)
			if err != nil {
				t.Fatalf("ReadBlock failed: %v", err)
			}
			if cmd.P2 != tt.block {
				t.Errorf("P2 = %d, want %d", cmd.P2, tt.block)
			}
		})
	}
}

func TestCommandBuilder_Errors(t *testing.T) {
	b := NewCommandBuilder(Geometry1K)

	tests := []struct {
		name    string
		build   func() error
		wantErr error
	}{
		{"short key", func() error { _, err := b.LoadKeyBytes(tlv.Hex("FFFFFFFFFF")); return err }, ErrInvalidKeyLength},
		{"long key", func() error { _, err := b.LoadKeyBytes(tlv.Hex("FFFFFFFFFFFFFF")); return err }, ErrInvalidKeyLength},
		{"sector out of range", func() error { _, err := b.Authenticate(SectorBlock(16, 0), KeyA); return err }, ErrInvalidAddress},
		{"block out of sector", func() error { _, err := b.ReadBlock(SectorBlock(0, 4)); return err }, ErrInvalidAddress},
		{"negative block", func() error { _, err := b.ReadBlock(SectorBlock(0, -1)); return err }, ErrInvalidAddress},
		{"absolute out of range", func() error { _, err := b.ReadBlock(AbsoluteBlock(64)); return err }, ErrInvalidAddress},
		{"bad key type", func() error { _, err := b.Authenticate(SectorBlock(0, 0), KeyType(0x62)); return err }, ErrInvalidKeyType},
		{"short block", func() error { _, err := b.WriteBlockBytes(SectorBlock(1, 0), make([]byte, 15)); return err }, ErrInvalidBlockLength},
		{"long block", func() error { _, err := b.WriteBlockBytes(SectorBlock(1, 0), make([]byte, 17)); return err }, ErrInvalidBlockLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
