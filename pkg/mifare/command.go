package mifare

import (
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/iso7816"
)

// PC/SC Part 3 pseudo-APDUs for storage cards, as implemented by contactless
// readers (ACR122U, ACR1252U, Omnikey...):
//
//	GET UID               FF CA 00 00 00
//	LOAD KEYS             FF 82 <structure> <slot> 06 <key:6>
//	GENERAL AUTHENTICATE  FF 86 00 00 05 <version> <MSB> <block> <key type> <slot>
//	READ BINARY           FF B0 <MSB> <block> 10
//	UPDATE BINARY         FF D6 <MSB> <block> 10 <data:16>
//
// Mifare Classic block numbers fit on one byte, so the MSB is always 00.
const (
	// KeyStructureVolatile is the LOAD KEYS P1 for a plain key kept in reader RAM.
	KeyStructureVolatile byte = 0x00

	// KeySlot is the reader key location used for LOAD KEYS and GENERAL AUTHENTICATE.
	KeySlot byte = 0x00

	// AuthVersion is the version byte of the GENERAL AUTHENTICATE data field.
	AuthVersion byte = 0x01

	// AddressMSB is the high byte of the block address.
	AddressMSB byte = 0x00

	getUIDLe = iso7816.MaxShortLe
)

var (
	insLoadKeys     = iso7816.MustInstruction(iso7816.INS_LOAD_KEYS)
	insAuthenticate = iso7816.MustInstruction(iso7816.INS_GENERAL_AUTHENTICATE)
	insReadBinary   = iso7816.MustInstruction(iso7816.INS_READ_BINARY)
	insUpdateBinary = iso7816.MustInstruction(iso7816.INS_UPDATE_BINARY)
	insGetData      = iso7816.MustInstruction(iso7816.INS_GET_DATA)
)

// CommandBuilder translates Mifare operations into reader commands. Its
// methods are pure: identical inputs always give byte-identical commands.
type CommandBuilder struct {
	Geometry Geometry
}

// NewCommandBuilder returns a builder addressing blocks through g.
func NewCommandBuilder(g Geometry) CommandBuilder {
	return CommandBuilder{Geometry: g}
}

// GetUID requests the card UID. It has no failure mode.
func (CommandBuilder) GetUID() *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.CLA_PCSC, insGetData, 0x00, 0x00, nil, getUIDLe)
}

// LoadKey loads key into the reader's volatile key slot.
func (CommandBuilder) LoadKey(key Key) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.CLA_PCSC, insLoadKeys, KeyStructureVolatile, KeySlot, key[:], 0)
}

// LoadKeyBytes validates raw key bytes and builds a LOAD KEYS command.
func (b CommandBuilder) LoadKeyBytes(raw []byte) (*iso7816.CommandAPDU, error) {
	key, err := NewKey(raw)
	if err != nil {
		return nil, err
	}
	return b.LoadKey(key), nil
}

// Authenticate builds a GENERAL AUTHENTICATE for the block at addr using the
// key previously loaded in KeySlot.
func (b CommandBuilder) Authenticate(addr Address, keyType KeyType) (*iso7816.CommandAPDU, error) {
	if !keyType.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidKeyType, byte(keyType))
	}
	block, err := b.Geometry.Resolve(addr)
	if err != nil {
		return nil, err
	}
	data := []byte{AuthVersion, AddressMSB, block, byte(keyType), KeySlot}
	return iso7816.NewCommandAPDU(iso7816.CLA_PCSC, insAuthenticate, 0x00, 0x00, data, 0), nil
}

// ReadBlock builds a READ BINARY of one full block.
func (b CommandBuilder) ReadBlock(addr Address) (*iso7816.CommandAPDU, error) {
	block, err := b.Geometry.Resolve(addr)
	if err != nil {
		return nil, err
	}
	return iso7816.NewCommandAPDU(iso7816.CLA_PCSC, insReadBinary, AddressMSB, block, nil, BlockSize), nil
}

// WriteBlock builds an UPDATE BINARY of one full block.
func (b CommandBuilder) WriteBlock(addr Address, data BlockData) (*iso7816.CommandAPDU, error) {
	block, err := b.Geometry.Resolve(addr)
	if err != nil {
		return nil, err
	}
	return iso7816.NewCommandAPDU(iso7816.CLA_PCSC, insUpdateBinary, AddressMSB, block, data[:], 0), nil
}

// WriteBlockBytes validates raw block bytes and builds an UPDATE BINARY.
func (b CommandBuilder) WriteBlockBytes(addr Address, raw []byte) (*iso7816.CommandAPDU, error) {
	data, err := NewBlockData(raw)
	if err != nil {
		return nil, err
	}
	return b.WriteBlock(addr, data)
}
