package mifare

import (
	"fmt"
	"strings"

	"github.com/gregLibert/mifare-tools/pkg/bits"
)

// SECTOR TRAILER LAYOUT (last block of every sector):
//
//	bytes 0-5   Key A (always reads back as zeros)
//	bytes 6-8   access bits
//	byte  9     general purpose byte (GPB)
//	bytes 10-15 Key B
//
// Each of the 4 block groups n (0-2 data, 3 trailer) has 3 access bits
// C1n C2n C3n, stored twice (plain and inverted):
//
//	byte 6: ~C2_3 ~C2_2 ~C2_1 ~C2_0 | ~C1_3 ~C1_2 ~C1_1 ~C1_0
//	byte 7:  C1_3  C1_2  C1_1  C1_0 | ~C3_3 ~C3_2 ~C3_1 ~C3_0
//	byte 8:  C3_3  C3_2  C3_1  C3_0 |  C2_3  C2_2  C2_1  C2_0
//
// In 16 block sectors, data groups span 5 blocks each.

// TransportAccessBits is the factory configuration FF 07 80 (GPB 69): data
// blocks fully open with either key, trailer writable with Key A.
var TransportAccessBits = [3]byte{0xFF, 0x07, 0x80}

// TransportGPB is the general purpose byte shipped with new cards.
const TransportGPB byte = 0x69

// AccessBits holds C1 C2 C3 of one block group as the value C1<<2 | C2<<1 | C3.
type AccessBits byte

// NewAccessBits packs c1, c2, c3.
func NewAccessBits(c1, c2, c3 bool) AccessBits {
	var v byte
	v = bits.SetTo(v, 3, c1)
	v = bits.SetTo(v, 2, c2)
	v = bits.SetTo(v, 1, c3)
	return AccessBits(v)
}

func (a AccessBits) C1() bool { return bits.IsSet(byte(a), 3) }
func (a AccessBits) C2() bool { return bits.IsSet(byte(a), 2) }
func (a AccessBits) C3() bool { return bits.IsSet(byte(a), 1) }

func (a AccessBits) String() string {
	return fmt.Sprintf("%03b", byte(a)&0x07)
}

var dataPermissions = [8]string{
	0b000: "read AB, write AB, increment AB, decrement AB",
	0b010: "read AB, write never, increment never, decrement never",
	0b100: "read AB, write B, increment never, decrement never",
	0b110: "read AB, write B, increment B, decrement AB",
	0b001: "read AB, write never, increment never, decrement AB",
	0b011: "read B, write B, increment never, decrement never",
	0b101: "read B, write never, increment never, decrement never",
	0b111: "read never, write never, increment never, decrement never",
}

var trailerPermissions = [8]string{
	0b000: "key A write A, access bits read A, key B read A write A",
	0b010: "key A write never, access bits read A, key B read A write never",
	0b100: "key A write B, access bits read AB, key B write B",
	0b110: "key A write never, access bits read AB, key B write never",
	0b001: "key A write A, access bits read A write A, key B read A write A",
	0b011: "key A write B, access bits read AB write B, key B write B",
	0b101: "key A write never, access bits read AB write B, key B write never",
	0b111: "key A write never, access bits read AB, key B write never",
}

// DataPermissions describes the rights these bits grant on a data block.
func (a AccessBits) DataPermissions() string {
	return dataPermissions[a&0x07]
}

// TrailerPermissions describes the rights these bits grant on a sector trailer.
func (a AccessBits) TrailerPermissions() string {
	return trailerPermissions[a&0x07]
}

// AccessConditions holds the access bits of the three data groups and of the
// trailer (index 3).
type AccessConditions [4]AccessBits

// DecodeAccessBits decodes trailer bytes 6-8, rejecting them when the
// inverted copy disagrees with the plain one. A card given such bits locks
// its sector permanently.
func DecodeAccessBits(raw [3]byte) (AccessConditions, error) {
	var ac AccessConditions
	b6, b7, b8 := raw[0], raw[1], raw[2]

	for n := uint(0); n < 4; n++ {
		c1 := bits.IsSet(b7, 5+n)
		c2 := bits.IsSet(b8, 1+n)
		c3 := bits.IsSet(b8, 5+n)

		if c1 == bits.IsSet(b6, 1+n) || c2 == bits.IsSet(b6, 5+n) || c3 == bits.IsSet(b7, 1+n) {
			return AccessConditions{}, fmt.Errorf("%w: %02X %02X %02X (group %d)", ErrAccessBitsCorrupt, b6, b7, b8, n)
		}
		ac[n] = NewAccessBits(c1, c2, c3)
	}
	return ac, nil
}

// Encode packs the conditions into trailer bytes 6-8.
func (ac AccessConditions) Encode() [3]byte {
	var b6, b7, b8 byte
	for n := uint(0); n < 4; n++ {
		a := ac[n]
		b6 = bits.SetTo(b6, 1+n, !a.C1())
		b6 = bits.SetTo(b6, 5+n, !a.C2())
		b7 = bits.SetTo(b7, 1+n, !a.C3())
		b7 = bits.SetTo(b7, 5+n, a.C1())
		b8 = bits.SetTo(b8, 1+n, a.C2())
		b8 = bits.SetTo(b8, 5+n, a.C3())
	}
	return [3]byte{b6, b7, b8}
}

// Group returns the access bits governing the block at index blockInSector
// of a sector holding sectorSize blocks.
func (ac AccessConditions) Group(blockInSector, sectorSize int) AccessBits {
	if blockInSector == sectorSize-1 {
		return ac[3]
	}
	if sectorSize > 4 {
		return ac[blockInSector/5]
	}
	return ac[blockInSector]
}

// Describe generates a per-group report of the access conditions.
func (ac AccessConditions) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== ACCESS CONDITIONS ===\n")
	for n := 0; n < 3; n++ {
		fmt.Fprintf(&sb, "    + Data group %d: [%s] %s\n", n, ac[n], ac[n].DataPermissions())
	}
	fmt.Fprintf(&sb, "    + Trailer:      [%s] %s", ac[3], ac[3].TrailerPermissions())
	return sb.String()
}

// Trailer is the decoded content of a sector trailer block.
type Trailer struct {
	KeyA   Key
	Access [3]byte
	GPB    byte
	KeyB   Key
}

// SplitTrailer cuts a sector trailer block into its fields.
func SplitTrailer(d BlockData) Trailer {
	var t Trailer
	copy(t.KeyA[:], d[0:6])
	copy(t.Access[:], d[6:9])
	t.GPB = d[9]
	copy(t.KeyB[:], d[10:16])
	return t
}

// Block reassembles the trailer into a writable block.
func (t Trailer) Block() BlockData {
	var d BlockData
	copy(d[0:6], t.KeyA[:])
	copy(d[6:9], t.Access[:])
	d[9] = t.GPB
	copy(d[10:16], t.KeyB[:])
	return d
}

// Conditions decodes the trailer access bits.
func (t Trailer) Conditions() (AccessConditions, error) {
	return DecodeAccessBits(t.Access)
}
