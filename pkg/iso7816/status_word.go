package iso7816

import (
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/bits"
)

// Status Word Logic:
//
// Every response ends with SW1 SW2. For reader pseudo-APDUs only '90 00' means
// the operation was performed; every other value is a failure. The failure
// sub-codes are reader specific (PC/SC Part 3 suggests a table, vendors
// deviate from it), so they are kept verbatim and only described, never acted
// upon.
//
// Ranges used for the description (ISO/IEC 7816-4):
//   - '62XX', '63XX': Warning (63CX carries a counter in the low nibble).
//   - '64XX' to '6FXX': Execution or checking error.

// StatusWord represents the two-byte status response (SW1-SW2).
type StatusWord uint16

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// Bytes returns SW1 SW2.
func (sw StatusWord) Bytes() []byte {
	return []byte{sw.SW1(), sw.SW2()}
}

// IsSuccess reports whether the status is exactly '90 00'.
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR
}

// IsWarning returns true if the status indicates a warning (62XX or 63XX).
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true if the status indicates an execution error (64XX to 6FXX).
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	return sw1 >= 0x64 && sw1 <= 0x6F
}

// IsCounter checks if the status is a '63CX' counter warning.
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && bits.HighNibble(sw.SW2()) == 0x0C
}

// Category groups status words for display (colouring a status bar, picking a log level).
type Category int

const (
	CategoryUnknown Category = iota
	CategorySuccess
	CategoryWarning
	CategoryError
)

func (c Category) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategoryWarning:
		return "warning"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// Category classifies the status word. It carries no behaviour beyond display.
func (sw StatusWord) Category() Category {
	switch {
	case sw.IsSuccess():
		return CategorySuccess
	case sw.IsWarning():
		return CategoryWarning
	case sw.IsError():
		return CategoryError
	default:
		return CategoryUnknown
	}
}

// String returns the display form: two hex bytes separated by a space ("90 00").
func (sw StatusWord) String() string {
	return fmt.Sprintf("%02X %02X", sw.SW1(), sw.SW2())
}

// Verbose returns a human-readable description of the status word.
func (sw StatusWord) Verbose() string {
	if sw.IsCounter() {
		return fmt.Sprintf("[%04X] Warning: State changed, counter = %d", uint16(sw), bits.LowNibble(sw.SW2()))
	}

	if desc, ok := statusDescriptions[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), desc)
	}

	if sw.SW1() == 0x6C {
		return fmt.Sprintf("[%04X] Wrong length, correct Le is %d", uint16(sw), sw.SW2())
	}

	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.genericCategoryDescription())
}

// genericCategoryDescription provides a fallback description based on SW1.
func (sw StatusWord) genericCategoryDescription() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x66:
		return "Execution Error: Security issue"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	default:
		return "Unknown Status"
	}
}

// Status words returned by PC/SC readers for storage card pseudo-APDUs
// (PC/SC Part 3, section 3.2.2) alongside the ISO/IEC 7816-4 values they reuse.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_DATA_CORRUPTED StatusWord = 0x6281
	SW_WARN_EOF_REACHED    StatusWord = 0x6282

	SW_OPERATION_FAILED            StatusWord = 0x6300
	SW_WARN_CARD_KEY_NOT_SUPPORTED StatusWord = 0x6382
	SW_WARN_READER_KEY_NOT_SUPP    StatusWord = 0x6383
	SW_WARN_PLAIN_TX_NOT_SUPP      StatusWord = 0x6384
	SW_WARN_SECURED_TX_NOT_SUPP    StatusWord = 0x6385
	SW_WARN_VOLATILE_MEM_NOT_AVAIL StatusWord = 0x6386
	SW_WARN_NV_MEM_NOT_AVAIL       StatusWord = 0x6387
	SW_WARN_KEY_NUMBER_NOT_VALID   StatusWord = 0x6388
	SW_WARN_KEY_LENGTH_NOT_CORRECT StatusWord = 0x6389

	SW_ERR_MEMORY_FAILURE StatusWord = 0x6581
	SW_ERR_WRONG_LENGTH   StatusWord = 0x6700

	SW_ERR_CMD_INCOMPATIBLE        StatusWord = 0x6981
	SW_ERR_SECURITY_STATUS_NOT_SAT StatusWord = 0x6982
	SW_ERR_AUTH_METHOD_BLOCKED     StatusWord = 0x6983
	SW_ERR_REF_DATA_NOT_USABLE     StatusWord = 0x6984
	SW_ERR_CMD_NOT_ALLOWED         StatusWord = 0x6986
	SW_ERR_KEY_NUMBER_INVALID      StatusWord = 0x6988

	SW_ERR_FUNC_NOT_SUPPORTED StatusWord = 0x6A81
	SW_ERR_BLOCK_NOT_FOUND    StatusWord = 0x6A82
	SW_ERR_WRONG_P1P2         StatusWord = 0x6B00
	SW_ERR_INS_INVALID        StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED  StatusWord = 0x6E00
	SW_ERR_UNKNOWN            StatusWord = 0x6F00
)

var statusDescriptions = map[StatusWord]string{
	SW_NO_ERROR:                    "SW_NO_ERROR: Operation successful",
	SW_WARN_DATA_CORRUPTED:         "SW_WARN_DATA_CORRUPTED: Part of returned data may be corrupted",
	SW_WARN_EOF_REACHED:            "SW_WARN_EOF_REACHED: End of data reached before Le bytes",
	SW_OPERATION_FAILED:            "SW_OPERATION_FAILED: Operation failed (no further information)",
	SW_WARN_CARD_KEY_NOT_SUPPORTED: "SW_WARN_CARD_KEY_NOT_SUPPORTED: Card key not supported",
	SW_WARN_READER_KEY_NOT_SUPP:    "SW_WARN_READER_KEY_NOT_SUPP: Reader key not supported",
	SW_WARN_PLAIN_TX_NOT_SUPP:      "SW_WARN_PLAIN_TX_NOT_SUPP: Plain transmission not supported",
	SW_WARN_SECURED_TX_NOT_SUPP:    "SW_WARN_SECURED_TX_NOT_SUPP: Secured transmission not supported",
	SW_WARN_VOLATILE_MEM_NOT_AVAIL: "SW_WARN_VOLATILE_MEM_NOT_AVAIL: Volatile memory not available",
	SW_WARN_NV_MEM_NOT_AVAIL:       "SW_WARN_NV_MEM_NOT_AVAIL: Non volatile memory not available",
	SW_WARN_KEY_NUMBER_NOT_VALID:   "SW_WARN_KEY_NUMBER_NOT_VALID: Key number not valid",
	SW_WARN_KEY_LENGTH_NOT_CORRECT: "SW_WARN_KEY_LENGTH_NOT_CORRECT: Key length not correct",
	SW_ERR_MEMORY_FAILURE:          "SW_ERR_MEMORY_FAILURE: Memory failure",
	SW_ERR_WRONG_LENGTH:            "SW_ERR_WRONG_LENGTH: Wrong length",
	SW_ERR_CMD_INCOMPATIBLE:        "SW_ERR_CMD_INCOMPATIBLE: Command incompatible",
	SW_ERR_SECURITY_STATUS_NOT_SAT: "SW_ERR_SECURITY_STATUS_NOT_SAT: Security status not satisfied",
	SW_ERR_AUTH_METHOD_BLOCKED:     "SW_ERR_AUTH_METHOD_BLOCKED: Authentication cannot be done",
	SW_ERR_REF_DATA_NOT_USABLE:     "SW_ERR_REF_DATA_NOT_USABLE: Reference key not usable",
	SW_ERR_CMD_NOT_ALLOWED:         "SW_ERR_CMD_NOT_ALLOWED: Command not allowed",
	SW_ERR_KEY_NUMBER_INVALID:      "SW_ERR_KEY_NUMBER_INVALID: Key number not valid",
	SW_ERR_FUNC_NOT_SUPPORTED:      "SW_ERR_FUNC_NOT_SUPPORTED: Function not supported",
	SW_ERR_BLOCK_NOT_FOUND:         "SW_ERR_BLOCK_NOT_FOUND: Addressed block or byte does not exist",
	SW_ERR_WRONG_P1P2:              "SW_ERR_WRONG_P1P2: Wrong parameters P1-P2",
	SW_ERR_INS_INVALID:             "SW_ERR_INS_INVALID: Instruction not supported",
	SW_ERR_CLA_NOT_SUPPORTED:       "SW_ERR_CLA_NOT_SUPPORTED: Class not supported",
	SW_ERR_UNKNOWN:                 "SW_ERR_UNKNOWN: No precise diagnosis",
}
