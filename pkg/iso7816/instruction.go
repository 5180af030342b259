package iso7816

import (
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/bits"
)

// Instruction Byte (INS) Logic according to ISO/IEC 7816-4 and PC/SC Part 3.
//
// PC/SC Part 3 reuses interindustry INS values under CLA 0xFF for commands the
// reader executes on behalf of a storage card that has no APDU layer of its
// own (Mifare Classic, Ultralight...).
//
// INS values where the upper nibble is '6' or '9' are invalid: they are
// reserved for SW1 and transport procedure bytes (ISO/IEC 7816-3).

// InsCode is a typed representation of the instruction byte.
type InsCode byte

const (
	INS_LOAD_KEYS            InsCode = 0x82
	INS_GENERAL_AUTHENTICATE InsCode = 0x86
	INS_AUTHENTICATE         InsCode = 0x88 // obsolete PC/SC 2.01 form
	INS_READ_BINARY          InsCode = 0xB0
	INS_GET_RESPONSE         InsCode = 0xC0
	INS_GET_DATA             InsCode = 0xCA
	INS_UPDATE_BINARY        InsCode = 0xD6
)

var insNames = map[InsCode]string{
	INS_LOAD_KEYS:            "LOAD KEYS",
	INS_GENERAL_AUTHENTICATE: "GENERAL AUTHENTICATE",
	INS_AUTHENTICATE:         "AUTHENTICATE",
	INS_READ_BINARY:          "READ BINARY",
	INS_GET_RESPONSE:         "GET RESPONSE",
	INS_GET_DATA:             "GET DATA",
	INS_UPDATE_BINARY:        "UPDATE BINARY",
}

func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS(0x%02X)", byte(i))
}

// Instruction represents a validated INS byte.
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction creates an Instruction object with validation.
// It rejects '6X' and '9X' values as they are invalid according to ISO 7816-3.
func NewInstruction(ins InsCode) (Instruction, error) {
	highNibble := bits.HighNibble(byte(ins))
	if highNibble == 0x6 || highNibble == 0x9 {
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: bits.IsSet(byte(ins), 1), // Bit 1 indicates BER-TLV data field
	}, nil
}

// MustInstruction is NewInstruction for the package constants, which are known valid.
func MustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw, format)
}
