package iso7816

import (
	"bytes"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures and encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
// A command consists of a mandatory Header (4 bytes) and an optional Body.
//
// 1. Header:
//   - CLA (Class): 0xFF for PC/SC reader pseudo-APDUs (PC/SC Part 3), which the
//     reader interprets itself instead of forwarding to the card.
//   - INS (Instruction): The specific command to execute.
//   - P1, P2 (Parameters): Command modifiers.
//
// 2. Body:
//   - Lc (Length Command): Number of bytes in the data field.
//   - Data: The command payload.
//   - Le (Length Expected): Maximum number of bytes expected in the response.
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: No Data, No Response (Header only).
// - Case 2: No Data, Response Expected (Header + Le).        e.g. READ BINARY
// - Case 3: Data Present, No Response (Header + Lc + Data).  e.g. LOAD KEYS
// - Case 4: Data Present, Response Expected.
//
// RESPONSE APDU (R-APDU):
// An optional data field followed by the mandatory SW1 SW2 trailer.

// APDU Limits according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode (1 byte).
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne) encodable in Short Length mode.
	// In Short mode, 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the limit for Lc in Extended mode (16-bit unsigned).
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in Extended Length mode.
	// In Extended mode, 0x0000 encodes 65536.
	MaxExtendedLe = 65536
)

// CLA_PCSC is the class byte reserved by PC/SC Part 3 for commands handled by the reader.
const CLA_PCSC byte = 0xFF

// CommandAPDU represents a command sent to the card or reader.
type CommandAPDU struct {
	CLA         byte
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a command. Data is copied so later changes to the
// caller's slice never alter an encoded or recorded command.
func NewCommandAPDU(cla byte, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	var payload []byte
	if len(data) > 0 {
		payload = append([]byte(nil), data...)
	}
	return &CommandAPDU{
		CLA:         cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        payload,
		Ne:          ne,
	}
}

// Bytes encodes the command into its C-APDU form, picking Short or Extended
// length encoding from Nc and Ne.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data too long: %d bytes (max %d)", nc, MaxExtendedLc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("expected length %d out of range (0..%d)", ne, MaxExtendedLe)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(c.CLA)
	buf.WriteByte(byte(c.Instruction.Raw))
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	isExtended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if isExtended {
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
		}
		buf.WriteByte(byte(nc))
		buf.Write(c.Data)
	}

	if ne > 0 {
		switch {
		case !isExtended:
			// 0x00 encodes 256
			buf.WriteByte(byte(ne))
		default:
			// Case 2 Extended needs the leading 00 that Lc would otherwise carry.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			// 0x0000 encodes 65536
			buf.WriteByte(byte(ne >> 8))
			buf.WriteByte(byte(ne))
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw bytes received from the card into data and
// status word. The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2
	data := append([]byte(nil), raw[:indexSW1]...)

	return &ResponseAPDU{
		Data:   data,
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
