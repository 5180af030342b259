package mifare

import (
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

// BlockSize is the size of a Mifare Classic memory block.
const BlockSize = 16

// BlockData is the content of one block.
type BlockData [BlockSize]byte

// NewBlockData builds a BlockData from exactly 16 bytes.
func NewBlockData(b []byte) (BlockData, error) {
	var d BlockData
	if len(b) != BlockSize {
		return d, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidBlockLength, len(b), BlockSize)
	}
	copy(d[:], b)
	return d, nil
}

// ParseBlockData builds a BlockData from 16 hex pairs.
func ParseBlockData(s string) (BlockData, error) {
	b, err := tlv.ParseHex(s)
	if err != nil {
		return BlockData{}, err
	}
	return NewBlockData(b)
}

// Bytes returns a copy of the block content.
func (d BlockData) Bytes() []byte {
	return append([]byte(nil), d[:]...)
}

func (d BlockData) String() string {
	return tlv.Spaced(d[:])
}
